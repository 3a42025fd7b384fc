package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter configures conversion, download, health and metrics routes.
func NewRouter(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/convert", handler.Convert).Methods(http.MethodPost)
	r.HandleFunc("/download/{path:.*}", handler.Download).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}
