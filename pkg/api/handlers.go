package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/nxneeraj/hx-warden/pkg/store"
	"github.com/nxneeraj/hx-warden/pkg/types"
)

// APIHandler holds dependencies for API endpoints.
type APIHandler struct {
	Store *store.FindingsStore
	log   *zap.SugaredLogger
}

// NewAPIHandler creates a new handler instance.
func NewAPIHandler(s *store.FindingsStore, log *zap.SugaredLogger) *APIHandler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &APIHandler{Store: s, log: log}
}

// FindingsResponse is the body of GET /findings.
type FindingsResponse struct {
	Count    int             `json:"count"`
	Findings []types.Finding `json:"findings"`
}

// StatsResponse is the body of GET /findings/stats.
type StatsResponse struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
	ByCategory map[string]int `json:"by_category"`
}

// ListFindingsHandler returns every finding, most severe first.
// GET /findings?severity=High
func (h *APIHandler) ListFindingsHandler(w http.ResponseWriter, r *http.Request) {
	var findings []types.Finding
	if label := r.URL.Query().Get("severity"); label != "" {
		sev, err := types.ParseSeverity(label)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		findings = h.Store.BySeverity(sev)
	} else {
		findings = h.Store.All()
	}
	if findings == nil {
		findings = []types.Finding{}
	}
	types.SortBySeverity(findings)

	writeJSON(w, http.StatusOK, FindingsResponse{Count: len(findings), Findings: findings})
}

// FindingHandler returns one finding by ID.
// GET /findings/{id}
func (h *APIHandler) FindingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	f, err := h.Store.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// StatsHandler returns finding totals per severity and category.
// GET /findings/stats
func (h *APIHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	bySeverity := make(map[string]int, len(types.Severities))
	counts := h.Store.CountsBySeverity()
	for _, sev := range types.Severities {
		bySeverity[sev.Label()] = counts[sev]
	}
	writeJSON(w, http.StatusOK, StatsResponse{
		Total:      h.Store.Count(),
		BySeverity: bySeverity,
		ByCategory: h.Store.CountsByCategory(),
	})
}

// ClearFindingsHandler drops every finding.
// DELETE /findings
func (h *APIHandler) ClearFindingsHandler(w http.ResponseWriter, r *http.Request) {
	n := h.Store.Count()
	h.Store.Clear()
	h.log.Infof("[API] Cleared %d findings", n)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
