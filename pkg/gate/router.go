package gate

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ethpandaops/cowcatwaf/pkg/challenge"
)

// NewRouter builds the full request router: the internal-prefix protocol
// and asset routes, plus a catch-all that proxies to upstream. Wrap the
// result in Gate.Wrap before serving it.
func NewRouter(handlers *challenge.Handlers, g *Gate, upstream http.Handler) *mux.Router {
	router := mux.NewRouter()

	internal := router.PathPrefix(challenge.InternalPrefix).Subrouter()
	internal.HandleFunc("/", handlers.PageHandler).Methods(http.MethodGet)
	internal.HandleFunc("/ok", challenge.OKHandler).Methods(http.MethodGet)
	internal.PathPrefix("/assets/").HandlerFunc(handlers.AssetHandler).Methods(http.MethodGet)
	internal.HandleFunc("/task", handlers.TaskHandler).Methods(http.MethodPost)
	internal.HandleFunc("/verify", handlers.VerifyHandler).Methods(http.MethodPost)
	internal.HandleFunc("/debug/warm-favicon", g.DebugWarmFaviconHandler).Methods(http.MethodPost)

	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.PathPrefix("/").Handler(upstream)

	return router
}
