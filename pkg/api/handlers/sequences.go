package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rolloutdb/pkg/core"
	"rolloutdb/pkg/models"
	"rolloutdb/pkg/ratelimit"
	"rolloutdb/pkg/registry"
	"rolloutdb/pkg/utils"
	"rolloutdb/pkg/validation"
)

type submitRequest struct {
	ProducerID int               `json:"producer_id"`
	Sequences  []models.Sequence `json:"sequences"`
	// GroupOverrides apply to every sequence in the submission; per-sequence
	// overrides win on key conflicts. Contents are never interpreted.
	GroupOverrides map[string]any `json:"group_overrides,omitempty"`
}

// RegisterSequences registers the submission endpoint.
func RegisterSequences(r *mux.Router, eng *core.Engine, lim *ratelimit.Pool) {
	r.HandleFunc("/sequences", submitSequences(eng, lim)).Methods(http.MethodPost)
}

func submitSequences(eng *core.Engine, lim *ratelimit.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.JSONError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if !lim.Allow(strconv.Itoa(req.ProducerID)) {
			utils.JSONError(w, http.StatusTooManyRequests, "submission rate exceeded")
			return
		}
		if len(req.GroupOverrides) > 0 {
			applyGroupOverrides(req.Sequences, req.GroupOverrides)
		}
		res, err := eng.Submit(req.ProducerID, req.Sequences)
		if err != nil {
			switch {
			case errors.Is(err, registry.ErrUnknownProducer):
				utils.JSONError(w, http.StatusNotFound, err.Error())
			case errors.Is(err, validation.ErrInvalidSequence):
				utils.JSONError(w, http.StatusBadRequest, err.Error())
			default:
				utils.JSONError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, res)
	}
}

func applyGroupOverrides(seqs []models.Sequence, group map[string]any) {
	for i := range seqs {
		if seqs[i].Overrides == nil {
			seqs[i].Overrides = make(map[string]any, len(group))
		}
		for k, v := range group {
			if _, ok := seqs[i].Overrides[k]; !ok {
				seqs[i].Overrides[k] = v
			}
		}
	}
}
