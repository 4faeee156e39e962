package generation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mmuslimabdulj/persona-chat/internal/domain"
)

// Failover tries Primary, then makes one best-effort attempt on Alternate
type Failover struct {
	Primary   Generator
	Alternate Generator
	Log       *slog.Logger
}

func (f *Failover) Generate(ctx context.Context, req Request) (string, error) {
	text, err := f.Primary.Generate(ctx, req)
	if err == nil {
		return text, nil
	}
	if f.Alternate == nil || errors.Is(err, ErrMissingKey) || ctx.Err() != nil {
		return "", asFailure(err)
	}

	f.Log.Warn("primary generator failed, trying alternate", "error", err)
	text, altErr := f.Alternate.Generate(ctx, req)
	if altErr != nil {
		return "", asFailure(errors.Join(err, altErr))
	}
	return text, nil
}

func asFailure(err error) error {
	if domain.KindOf(err) == domain.KindGenerationFailure {
		return err
	}
	return domain.GenerationFailed(err)
}
