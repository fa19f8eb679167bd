package obs

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Time logs the duration and outcome of an operation when the returned
// function is invoked, typically via defer:
//
//	defer obs.Time(ctx, "matrix.Build")(&err)
//
// The logger is taken from the context so request-scoped fields (request id)
// carry through.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()
	log := zerolog.Ctx(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Error().Str("op", name).Dur("dur", dur).Err(*errp).Msg("operation failed")
			return
		}
		log.Debug().Str("op", name).Dur("dur", dur).Msg("operation complete")
	}
}
