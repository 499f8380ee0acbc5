package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfigurationMissing  = errors.New("configuration missing")
	ErrStoreUnavailable      = errors.New("vector store unavailable")
	ErrEmbeddingUnavailable  = errors.New("embedding provider unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrWebSearchUnavailable  = errors.New("web search unavailable")

	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrTemporary        = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
