package transport

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/pitabwire/flowdeck/internal/observability"
	"github.com/pitabwire/flowdeck/model"
)

// UsageReporter produces the license usage snapshot.
type UsageReporter interface {
	Usage(ctx context.Context) (model.UsageSnapshot, error)
}

func handleGetLicense(usage UsageReporter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := usage.Usage(r.Context())
		if err != nil {
			observability.LoggerFrom(r.Context(), logger).Error("usage report failed", zap.Error(err))
			WriteError(w, model.BackendError(err))
			return
		}
		WriteJSON(w, http.StatusOK, snapshot)
	}
}
