package diff

import (
	"context"
	"log/slog"

	"github.com/pmezard/go-difflib/difflib"
)

const defaultContext = 3

// Adapter implements usecase.DiffPort with unified diffs.
type Adapter struct {
	logger  *slog.Logger
	context int
}

// New creates a new diff adapter.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		panic("diff adapter requires logger")
	}
	return &Adapter{logger: logger, context: defaultContext}
}

// Unified returns a unified diff of from against to, or "" when the line
// sequences are equal.
func (a *Adapter) Unified(ctx context.Context, from, to []byte, fromLabel, toLabel string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(from)),
		B:        difflib.SplitLines(string(to)),
		FromFile: fromLabel,
		ToFile:   toLabel,
		Context:  a.context,
	}
	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return "", err
	}
	a.logger.Debug("diff rendered", "from", fromLabel, "to", toLabel, "bytes", len(out))
	return out, nil
}
