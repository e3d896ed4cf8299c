package api

import (
	"errors"
	"net/http"

	"github.com/ignite/warmup-engine/internal/pkg/httputil"
	"github.com/ignite/warmup-engine/internal/service/deliverability"
	"github.com/ignite/warmup-engine/internal/service/warmup"
)

// writeServiceError maps service sentinels to HTTP responses. Anything it
// does not recognize is logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, warmup.ErrInvalidConfig):
		fields := warmup.ValidationErrors(err)
		if fields == nil {
			fields = []*warmup.ValidationError{}
		}
		httputil.Unprocessable(w, "invalid_config", "warmup config rejected", fields)
	case errors.Is(err, warmup.ErrNotFound):
		httputil.NotFound(w, "warmup config not found")
	case errors.Is(err, warmup.ErrConflict):
		httputil.Conflict(w, "conflict", "config changed concurrently, reload and retry")
	case errors.Is(err, warmup.ErrFutureTick):
		httputil.BadRequest(w, "tick date must not be after today")
	case errors.Is(err, warmup.ErrLocked):
		httputil.Conflict(w, "locked", "account is being updated, retry shortly")
	case errors.Is(err, deliverability.ErrNegativeTotal):
		httputil.Unprocessable(w, "negative_total", err.Error(), nil)
	default:
		httputil.InternalError(w, err)
	}
}
