package handlers

import (
	"context"
	"time"

	"github.com/heptiolabs/healthcheck"
	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

const checkTimeout = 2 * time.Second

// Pinger is any dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	checks healthcheck.Handler
}

// NewHealthHandler registers a readiness check per dependency. Liveness only
// guards against goroutine leaks.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(10_000))
	for name, dep := range deps {
		dep := dep
		h.AddReadinessCheck(name, healthcheck.Timeout(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
			defer cancel()
			return dep.Ping(ctx)
		}, checkTimeout))
	}
	return &HealthHandler{checks: h}
}

func RegisterHealthRoutes(r *xhttp.Router, h *HealthHandler) {
	r.GET("/health/live", h.Live())
	r.GET("/health/ready", h.Ready())
}

func (h *HealthHandler) Live() xhttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandlerFunc(h.checks.LiveEndpoint)
}

func (h *HealthHandler) Ready() xhttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandlerFunc(h.checks.ReadyEndpoint)
}
