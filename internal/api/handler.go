package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/classifier"
	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/history"
	"github.com/opensource-finance/kestrel/internal/observability"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	clf     *classifier.Classifier
	hist    *history.Service
	engine  *domain.EngineConfig
	metrics *observability.Metrics
	version string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, clf *classifier.Classifier, hist *history.Service, engine *domain.EngineConfig, metrics *observability.Metrics, version string) *Handler {
	return &Handler{
		repo:    repo,
		cache:   cache,
		bus:     bus,
		clf:     clf,
		hist:    hist,
		engine:  engine,
		metrics: metrics,
		version: version,
	}
}

// AccountInfo carries one side of a transaction.
type AccountInfo struct {
	ID         string  `json:"id"`
	OldBalance float64 `json:"oldBalance"`
	NewBalance float64 `json:"newBalance"`
}

// ClassifyRequest is the request body for POST /classify.
type ClassifyRequest struct {
	ID     string      `json:"id,omitempty"`
	Step   int         `json:"step,omitempty"`
	Type   string      `json:"type"`
	Amount float64     `json:"amount"`
	Origin AccountInfo `json:"origin"`
	Dest   AccountInfo `json:"dest"`
}

// ClassifyResponse is the response for POST /classify.
type ClassifyResponse struct {
	ClassificationID    string                      `json:"classificationId"`
	TxID                string                      `json:"txId"`
	Decision            domain.Decision             `json:"decision"`
	TotalScore          float64                     `json:"totalScore"`
	FraudProbability    float64                     `json:"fraudProbability"`
	TriggeredSafeguards []string                    `json:"triggeredSafeguards"`
	SignalBreakdown     []domain.SignalContribution `json:"signalBreakdown,omitempty"`
	Metadata            struct {
		TraceID    string `json:"traceId"`
		SignalsMs  int64  `json:"signalsMs"`
		DecisionMs int64  `json:"decisionMs"`
		TotalMs    int64  `json:"totalMs"`
		Version    string `json:"version"`
	} `json:"metadata"`
}

// toTransaction converts a request into a domain transaction, generating
// an ID when the caller omits one.
func (req *ClassifyRequest) toTransaction() *domain.Transaction {
	id := req.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	return &domain.Transaction{
		ID:               id,
		Step:             req.Step,
		Type:             domain.TxType(req.Type),
		OriginID:         req.Origin.ID,
		OriginOldBalance: req.Origin.OldBalance,
		OriginNewBalance: req.Origin.NewBalance,
		DestID:           req.Dest.ID,
		DestOldBalance:   req.Dest.OldBalance,
		DestNewBalance:   req.Dest.NewBalance,
		Amount:           req.Amount,
		Timestamp:        now,
		CreatedAt:        now,
	}
}

// Classify handles POST /classify requests.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	traceID := GetTraceID(ctx)

	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if req.Type == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "type is required",
		})
		return
	}
	if req.Origin.ID == "" || req.Dest.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "origin.id and dest.id are required",
		})
		return
	}

	tx := req.toTransaction()

	classification, err := h.clf.Classify(ctx, tx)
	if err != nil {
		status, reason := classifyErrorStatus(err)
		if h.metrics != nil {
			h.metrics.IncrClassificationError(reason)
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	result := classification.Result

	if h.metrics != nil {
		h.metrics.RecordClassification(string(result.Decision), string(tx.Type), result.TriggeredSafeguards)
		h.metrics.RecordClassifyDuration("total", time.Since(start))
	}

	h.publishClassification(classification)

	resp := ClassifyResponse{
		ClassificationID:    classification.ID,
		TxID:                classification.TxID,
		Decision:            result.Decision,
		TotalScore:          result.TotalScore,
		FraudProbability:    result.FraudProbability,
		TriggeredSafeguards: result.TriggeredSafeguards,
		SignalBreakdown:     result.SignalBreakdown,
	}
	resp.Metadata.TraceID = traceID
	resp.Metadata.SignalsMs = classification.Metadata.SignalsMs
	resp.Metadata.DecisionMs = classification.Metadata.DecisionMs
	resp.Metadata.TotalMs = classification.Metadata.TotalMs
	resp.Metadata.Version = h.version

	writeJSON(w, http.StatusOK, resp)
}

// publishClassification emits classification and alert events. Publish
// failures are logged, never surfaced to the caller.
func (h *Handler) publishClassification(classification *domain.Classification) {
	if h.bus == nil {
		return
	}

	// Publishing happens after the response path is decided; use a
	// bounded background context so a slow broker cannot stall it.
	ctx, cancel := contextWithPublishTimeout()
	defer cancel()

	payload, err := json.Marshal(classification)
	if err != nil {
		slog.Error("failed to marshal classification event", "error", err)
		return
	}

	if err := h.bus.Publish(ctx, domain.TopicClassification, payload); err != nil {
		slog.Error("failed to publish classification", "id", classification.ID, "error", err)
	}

	if classification.ShouldAlert() {
		if err := h.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Error("failed to publish alert", "id", classification.ID, "error", err)
		}
	}
}

// SubmitTransaction handles POST /transactions: ingests a labeled
// transaction into the history store.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var tx domain.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now().UTC()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	if err := tx.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	if err := h.repo.SaveTransaction(ctx, &tx); err != nil {
		slog.Error("failed to save transaction", "id", tx.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save transaction",
		})
		return
	}

	// The account's cached summary is stale now.
	if h.hist != nil {
		if err := h.hist.Invalidate(ctx, tx.OriginID); err != nil {
			slog.Warn("failed to invalidate history", "origin_id", tx.OriginID, "error", err)
		}
	}

	if h.bus != nil {
		if payload, err := json.Marshal(&tx); err == nil {
			if err := h.bus.Publish(ctx, domain.TopicTransactionSubmitted, payload); err != nil {
				slog.Error("failed to publish transaction", "id", tx.ID, "error", err)
			}
		}
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": tx.ID})
}

// GetTransaction retrieves a transaction by ID.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := chi.URLParam(r, "id")

	if txID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transaction id is required",
		})
		return
	}

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	tx, err := h.repo.GetTransaction(ctx, txID)
	if err != nil {
		slog.Error("failed to get transaction", "id", txID, "error", err)
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "transaction not found",
		})
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// GetHistory returns the derived history summary for an origin account.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	originID := chi.URLParam(r, "id")

	if originID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "account id is required",
		})
		return
	}

	if h.hist == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "history service not available",
		})
		return
	}

	summary, err := h.hist.Summarize(ctx, originID)
	if err != nil {
		slog.Error("failed to summarize account", "id", originID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to summarize account",
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// GetConfig exposes the active engine configuration for explainability.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"engine":  h.engine,
		"version": h.version,
	})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// classifyErrorStatus maps pipeline errors to HTTP status codes and
// metric labels. Domain validation failures are the caller's fault;
// everything else is ours.
func classifyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidTransactionType):
		return http.StatusBadRequest, "invalid_type"
	case errors.Is(err, domain.ErrInvalidTransactionAmount):
		return http.StatusBadRequest, "invalid_amount"
	case errors.Is(err, domain.ErrInvalidBalanceValue):
		return http.StatusBadRequest, "invalid_balance"
	case errors.Is(err, domain.ErrMissingSignalContribution):
		return http.StatusInternalServerError, "missing_signal"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func contextWithPublishTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
