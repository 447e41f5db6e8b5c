package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/market-intel/internal/models"
	"github.com/mohamedkhairy/market-intel/internal/rules"
	"github.com/mohamedkhairy/market-intel/internal/storage"
	"github.com/mohamedkhairy/market-intel/pkg/logger"
)

const (
	defaultNarrativeLimit = 100
	maxNarrativeLimit     = 1000
)

// SnapshotSource returns the latest snapshot published for an asset class
type SnapshotSource interface {
	Latest(ctx context.Context, class models.AssetClass) (models.MarketSnapshot, bool, error)
}

// SnapshotHandler serves the latest market snapshots
type SnapshotHandler struct {
	source  SnapshotSource
	classes []models.AssetClass
}

// NewSnapshotHandler creates a new snapshot handler. source may be nil when
// publishing is disabled.
func NewSnapshotHandler(source SnapshotSource, classes []models.AssetClass) *SnapshotHandler {
	return &SnapshotHandler{source: source, classes: classes}
}

// GetSnapshot handles GET /api/v1/snapshots/{class}
func (h *SnapshotHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	class, err := models.ParseAssetClass(mux.Vars(r)["class"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if h.source == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Snapshot publishing disabled")
		return
	}

	snapshot, ok, err := h.source.Latest(r.Context(), class)
	if err != nil {
		logger.Error("Failed to read snapshot",
			logger.ErrorField(err),
			logger.String("asset_class", string(class)),
		)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve snapshot")
		return
	}
	if !ok {
		respondWithError(w, http.StatusNotFound, "No snapshot for "+string(class))
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// ListSnapshots handles GET /api/v1/snapshots and returns whatever is
// currently stored for each configured asset class
func (h *SnapshotHandler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Snapshot publishing disabled")
		return
	}

	snapshots := make([]models.MarketSnapshot, 0, len(h.classes))
	for _, class := range h.classes {
		snapshot, ok, err := h.source.Latest(r.Context(), class)
		if err != nil {
			logger.Warn("Failed to read snapshot",
				logger.ErrorField(err),
				logger.String("asset_class", string(class)),
			)
			continue
		}
		if ok {
			snapshots = append(snapshots, snapshot)
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

// NarrativeHandler serves stored narrative history
type NarrativeHandler struct {
	storage storage.NarrativeStorage
}

// NewNarrativeHandler creates a new narrative handler. history may be nil
// when the database is disabled.
func NewNarrativeHandler(history storage.NarrativeStorage) *NarrativeHandler {
	return &NarrativeHandler{storage: history}
}

// ListNarratives handles GET /api/v1/narratives
func (h *NarrativeHandler) ListNarratives(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Narrative history disabled")
		return
	}

	filter, err := parseNarrativeFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	narratives, err := h.storage.GetNarratives(r.Context(), filter)
	if err != nil {
		logger.Error("Failed to query narratives", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve narratives")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"narratives": narratives,
		"count":      len(narratives),
		"limit":      filter.Limit,
		"offset":     filter.Offset,
	})
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func parseNarrativeFilter(r *http.Request) (storage.NarrativeFilter, error) {
	q := r.URL.Query()
	filter := storage.NarrativeFilter{
		Symbol:   q.Get("symbol"),
		RuleName: q.Get("rule"),
		Limit:    defaultNarrativeLimit,
	}

	if v := q.Get("asset_class"); v != "" {
		class, err := models.ParseAssetClass(v)
		if err != nil {
			return filter, err
		}
		filter.AssetClass = class
	}
	if v := q.Get("priority"); v != "" {
		p := models.Priority(v)
		if !p.Valid() {
			return filter, badRequest("invalid priority: " + v)
		}
		filter.Priority = p
	}
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, badRequest("start must be RFC3339")
		}
		filter.StartTime = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, badRequest("end must be RFC3339")
		}
		filter.EndTime = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return filter, badRequest("limit must be a positive integer")
		}
		if n > maxNarrativeLimit {
			n = maxNarrativeLimit
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, badRequest("offset must be a non-negative integer")
		}
		filter.Offset = n
	}

	return filter, nil
}

// RuleHandler exposes the loaded narrative rules
type RuleHandler struct {
	rules *rules.RuleSet
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(set *rules.RuleSet) *RuleHandler {
	return &RuleHandler{rules: set}
}

// ListRules handles GET /api/v1/rules, optionally filtered by ?asset_class=
func (h *RuleHandler) ListRules(w http.ResponseWriter, r *http.Request) {
	classes := h.rules.Classes()
	if v := r.URL.Query().Get("asset_class"); v != "" {
		class, err := models.ParseAssetClass(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		classes = []models.AssetClass{class}
	}

	all := make([]*models.Rule, 0)
	for _, class := range classes {
		all = append(all, h.rules.For(class)...)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"rules": all,
		"count": len(all),
	})
}

// GetRule handles GET /api/v1/rules/{class}/{id}
func (h *RuleHandler) GetRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	class, err := models.ParseAssetClass(vars["class"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	rule, err := h.rules.Get(class, vars["id"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Rule not found")
		return
	}

	respondWithJSON(w, http.StatusOK, rule)
}

// ValidateRuleRequest is the body of a rule validation request. Metrics is
// optional; when present the rule is evaluated against it and the narrative
// rendered.
type ValidateRuleRequest struct {
	Rule    models.Rule      `json:"rule"`
	Symbol  string           `json:"symbol,omitempty"`
	Metrics models.MetricSet `json:"metrics,omitempty"`
}

// ValidateRule handles POST /api/v1/rules/validate
func (h *RuleHandler) ValidateRule(w http.ResponseWriter, r *http.Request) {
	var req ValidateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	compiled, err := rules.Compile(&req.Rule)
	if err != nil {
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	response := map[string]interface{}{
		"valid":        true,
		"placeholders": rules.Placeholders(req.Rule.Narrative),
	}

	if req.Metrics != nil {
		// News conditions cannot match without a provider
		matched := compiled.Evaluate(r.Context(), req.Symbol, req.Metrics, nil)
		response["matched"] = matched
		if matched {
			text, err := rules.Render(req.Rule.Narrative, req.Metrics)
			if err != nil {
				response["render_error"] = err.Error()
			} else {
				response["narrative"] = text
			}
		}
	}

	respondWithJSON(w, http.StatusOK, response)
}
