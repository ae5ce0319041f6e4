package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rolloutdb/pkg/core"
	"rolloutdb/pkg/registry"
	"rolloutdb/pkg/utils"
)

type registerRequest struct {
	Weight        float64  `json:"weight"`
	UnitSize      int      `json:"unit_size"`
	MinAllocation *float64 `json:"min_allocation,omitempty"`
	MaxPayloadLen int      `json:"max_payload_len"`
}

// RegisterProducers registers HTTP handlers for producer lifecycle and
// status endpoints.
func RegisterProducers(r *mux.Router, eng *core.Engine) {
	r.HandleFunc("/producers", registerProducer(eng)).Methods(http.MethodPost)
	r.HandleFunc("/producers/{id}", unregisterProducer(eng)).Methods(http.MethodDelete)
	r.HandleFunc("/producers/{id}/status", producerStatus(eng)).Methods(http.MethodGet)
}

func registerProducer(eng *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		id, err := eng.Register(req.Weight, req.UnitSize, req.MinAllocation, req.MaxPayloadLen)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, map[string]int{"producer_id": id})
	}
}

func unregisterProducer(eng *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := producerID(r)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid producer id")
			return
		}
		// idempotent: unregistering an unknown id still acks
		eng.Unregister(id)
		_ = utils.JSONWrite(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func producerStatus(eng *core.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := producerID(r)
		if err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid producer id")
			return
		}
		st, err := eng.ProducerStatus(id)
		if err != nil {
			if errors.Is(err, registry.ErrUnknownProducer) {
				utils.JSONError(w, http.StatusNotFound, err.Error())
				return
			}
			utils.JSONError(w, http.StatusInternalServerError, err.Error())
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, st)
	}
}

func producerID(r *http.Request) (int, error) {
	return strconv.Atoi(mux.Vars(r)["id"])
}
