package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"rolloutdb/pkg/core"
	"rolloutdb/pkg/utils"
)

// RegisterAdmin registers server status and reset endpoints.
func RegisterAdmin(r *mux.Router, eng *core.Engine) {
	r.HandleFunc("/status", serverStatus(eng)).Methods(http.MethodGet)
	r.HandleFunc("/reset", resetServer(eng)).Methods(http.MethodPost)
}

func serverStatus(eng *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.JSONWrite(w, http.StatusOK, eng.Status())
	}
}

func resetServer(eng *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng.Reset()
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
