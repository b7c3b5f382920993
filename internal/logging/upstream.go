package logging

import (
	"context"
	"log/slog"
	"time"
)

// TrackUpstream logs the start of a call to the remote media provider and
// returns a function that records its outcome. Call the returned function
// exactly once with the call's error.
//
//	done := logging.TrackUpstream(ctx, "upload", "kind", "video")
//	err := store.Upload(ctx, in)
//	done(err)
func TrackUpstream(ctx context.Context, op string, args ...any) func(error) {
	logger := FromContext(ctx).With(slog.String("upstream_op", op)).With(args...)
	start := time.Now()
	logger.Debug("upstream call started")

	return func(err error) {
		elapsed := slog.Duration("duration", time.Since(start))
		if err != nil {
			logger.Error("upstream call failed", elapsed, slog.Any("error", err))
			return
		}
		logger.Info("upstream call completed", elapsed)
	}
}
