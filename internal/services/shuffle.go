package services

import (
	"hash/fnv"
	"math/rand/v2"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
)

// seededRand derives a PRNG from the given parts, so the same parts always give the same order
func seededRand(parts ...string) *rand.Rand {
	h := fnv.New64a()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	sum := h.Sum64()
	return rand.New(rand.NewPCG(sum, sum^0x9e3779b97f4a7c15))
}

// shuffleQuestionIDs returns a permutation of ids seeded by the attempt id
func shuffleQuestionIDs(ids []string, attemptID string) []string {
	out := append([]string(nil), ids...)
	r := seededRand("questions", attemptID)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// shuffleOptions returns a copy of the options in an order fixed by (attempt, question)
func shuffleOptions(options []models.QuestionOption, attemptID, questionID string) []models.QuestionOption {
	out := append([]models.QuestionOption(nil), options...)
	r := seededRand("options", attemptID, questionID)
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}
