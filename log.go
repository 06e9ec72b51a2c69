package nokk

import (
	"context"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
)

// AttachLogListener registers listeners that record lifecycle events through
// logger, one info record per event. Only the given kinds are logged; when
// none are named every kind is. A nil logger falls back to slog.Default().
//
// Like any registration it must happen before the first emit.
func AttachLogListener(bus *Bus, logger *slog.Logger, kinds ...Kind) error {
	if logger == nil {
		logger = slog.Default()
	}
	if len(kinds) == 0 {
		kinds = Kinds()
	}

	for _, kind := range kinds {
		err := bus.On(kind, Unbounded, func(ctx context.Context, args []any) error {
			attrs := []any{slog.String("kind", string(kind))}
			if rc := RunContextOf(args); rc != nil {
				attrs = append(attrs, slog.String("run_id", rc.ID()))
				args = args[:len(args)-1]
			}
			attrs = append(attrs, slog.Any("payload", args))
			logger.InfoContext(ctx, "lifecycle event", attrs...)
			return nil
		})
		if err != nil {
			return goerr.Wrap(err, "attach log listener", goerr.V("kind", kind))
		}
	}
	return nil
}
