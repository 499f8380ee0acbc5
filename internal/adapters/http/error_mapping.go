package httpadapter

import (
	"net/http"

	"github.com/tawandam/policy-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary),
		domain.IsKind(err, domain.ErrStoreUnavailable),
		domain.IsKind(err, domain.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// userSafeMessage maps a pipeline error onto a presentable line. Raw error
// text never reaches the client; the detail is logged server-side.
func userSafeMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "The request was invalid."
	case domain.IsKind(err, domain.ErrDocumentNotFound):
		return "Document not found."
	case domain.IsKind(err, domain.ErrStoreUnavailable):
		return "The policy document store is temporarily unavailable. Please try again shortly."
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable):
		return "The assistant could not process your question right now. Please try again shortly."
	case domain.IsKind(err, domain.ErrGenerationUnavailable):
		return "The assistant could not generate a response right now. Please try again shortly."
	default:
		return "Something went wrong while processing your request."
	}
}
