package usecase

import (
	"github.com/tawandam/policy-assistant/internal/core/domain"
)

// Relevant reports whether retrieved context is trustworthy: the result set is
// non-empty and its closest distance is strictly below the threshold. Only the
// nearest neighbour governs the decision; the remaining results are
// informational. An empty result set or a NaN leading distance is never
// relevant and never an error.
func Relevant(chunks []domain.RetrievedChunk, threshold float64) bool {
	if len(chunks) == 0 {
		return false
	}
	// NaN compares false against any threshold, covering a store that
	// returns no usable score for the top hit.
	return chunks[0].Distance < threshold
}
