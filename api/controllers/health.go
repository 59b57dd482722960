package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/tradewind-labs/tradedesk-backend/api/responses"
	pkgerrors "github.com/tradewind-labs/tradedesk-backend/pkg/errors"
	"github.com/tradewind-labs/tradedesk-backend/pkg/logger"
)

// Pinger is the readiness surface of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependencyProbe struct {
	Name   string
	Pinger Pinger
}

// Probe names a dependency for the readiness report.
func Probe(name string, pinger Pinger) dependencyProbe {
	return dependencyProbe{Name: name, Pinger: pinger}
}

// HealthLive answers liveness checks without touching dependencies.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady pings each dependency with a short deadline and reports
// per-dependency status. Any failure yields a 503.
func HealthReady(logg *logger.Logger, probes ...dependencyProbe) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		statuses := make(map[string]string, len(probes))
		healthy := true
		for _, probe := range probes {
			if probe.Pinger == nil {
				statuses[probe.Name] = "skipped"
				continue
			}
			if err := probe.Pinger.Ping(ctx); err != nil {
				logg.Error(ctx, "readiness probe failed: "+probe.Name, err)
				statuses[probe.Name] = "down"
				healthy = false
				continue
			}
			statuses[probe.Name] = "ok"
		}

		if !healthy {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "service not ready").
					WithDetails(statuses))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "dependencies": statuses})
	}
}
