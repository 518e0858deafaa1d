package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler, gatherer prometheus.Gatherer) chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Route("/monitor", func(r chi.Router) {
			r.Get("/status", h.MonitorStatus)
		})
		r.Route("/system", func(r chi.Router) {
			r.Get("/rules", h.Rules)
			r.Get("/logs", h.Logs)
			r.Route("/hooks", func(r chi.Router) {
				r.Post("/netfilterd", h.NetfilterDHook)
			})
		})
	})
	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
