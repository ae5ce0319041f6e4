package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"rolloutdb/pkg/allocator"
	"rolloutdb/pkg/core"
	"rolloutdb/pkg/utils"
)

// RegisterBatches registers the trainer-facing batch endpoint. The batch
// size is fixed at server configuration time; trainers poll and retry on a
// null batch.
func RegisterBatches(r *mux.Router, eng *core.Engine) {
	r.HandleFunc("/batch", requestBatch(eng)).Methods(http.MethodGet)
}

func requestBatch(eng *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := eng.FormBatch()
		if err != nil {
			if errors.Is(err, allocator.ErrInsufficientData) {
				// a normal negative result, not an HTTP error
				_ = utils.JSONWrite(w, http.StatusOK, map[string]any{"batch": nil})
				return
			}
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, b)
	}
}
