package middleware

import (
	"context"

	"rentcal/internal/app/commands"
	"rentcal/internal/app/outbox"
)

// OutboxFlush releases events staged by the command. Events recorded by a
// partially applied command are released as well.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := nextFn(ctx, cmd)
			flushErr := box.Flush(ctx)
			if err != nil {
				return res, err
			}
			if flushErr != nil {
				return nil, flushErr
			}
			return res, nil
		})
	}
}
