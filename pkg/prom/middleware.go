package prom

import (
	"time"

	xhttp "github.com/nimasrn/inquiry-desk/pkg/http"
)

// Middleware records request count, latency and in-flight requests keyed by
// the matched route pattern, so ids in paths do not explode label cardinality.
func Middleware(next xhttp.RequestHandler) xhttp.RequestHandler {
	return func(ctx *xhttp.RequestCtx) {
		if !MetricSystemEnabled {
			next(ctx)
			return
		}
		method := string(ctx.Method())
		AddGaugeVec(SystemHTTP, MetricInFlight, 1, method)
		start := time.Now()

		next(ctx)

		AddGaugeVec(SystemHTTP, MetricInFlight, -1, method)
		path := xhttp.MatchedPath(ctx)
		IncRequest(method, path, ctx.Response.StatusCode())
		AddHistogramVec(SystemHTTP, MetricRequestDuration, time.Since(start).Seconds(), method, path)
	}
}
