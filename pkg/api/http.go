package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"rolloutdb/pkg/api/handlers"
	"rolloutdb/pkg/core"
	"rolloutdb/pkg/ratelimit"
)

// Handler returns the /v1 API router. lim may be nil to disable submission
// rate limiting.
func Handler(eng *core.Engine, lim *ratelimit.Pool) http.Handler {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterProducers(v1, eng)
	handlers.RegisterSequences(v1, eng, lim)
	handlers.RegisterBatches(v1, eng)
	handlers.RegisterAdmin(v1, eng)
	return r
}
