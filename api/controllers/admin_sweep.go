package controllers

import (
	"context"
	"net/http"

	"go.uber.org/multierr"

	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/api/responses"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/internal/cron"
	pkgerrors "github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/errors"
	"github.com/Alessandro-CF/Fresaterra-Backend-sub000/pkg/logger"
)

type orderSweeper interface {
	Sweep(ctx context.Context) (cron.SweepResult, error)
}

type sweepResponse struct {
	SweptCount int `json:"swept_count"`
	Failed     int `json:"failed"`
}

// AdminSweepOrders runs one expiration sweep on demand. A partially failed
// sweep still answers 200 with the failure count; failed orders stay pending
// for the next sweep.
func AdminSweepOrders(sweeper orderSweeper, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sweeper unavailable"))
			return
		}

		result, err := sweeper.Sweep(r.Context())
		failed := len(multierr.Errors(err))
		if err != nil && result.SweptCount == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sweep pending orders").
				WithDetails(map[string]any{"failed": failed}))
			return
		}
		if err != nil && logg != nil {
			logg.Error(logg.WithField(r.Context(), "failed", failed), "sweep finished with failures", err)
		}
		responses.WriteSuccess(w, sweepResponse{SweptCount: result.SweptCount, Failed: failed})
	}
}
