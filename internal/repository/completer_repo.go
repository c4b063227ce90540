package repository

import (
	"context"

	"github.com/user/bizanalyzer/internal/entity"
)

// Completer is a stateless large-language-model completion capability.
type Completer interface {
	// Complete sends one prompt and returns the model's text. Errors are transport,
	// auth or rate-limit failures.
	Complete(ctx context.Context, prompt entity.Prompt) (string, error)
}
