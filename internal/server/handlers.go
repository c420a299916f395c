package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/banking/activity-graph-service/internal/domain"
	"github.com/banking/activity-graph-service/internal/pkg/logger"
	"github.com/banking/activity-graph-service/internal/service"
)

// Handler holds the route handlers over the engine
type Handler struct {
	engine *service.Engine
	log    *logger.Logger
}

// Health reports liveness
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// AddEntity registers an entity node
func (h *Handler) AddEntity(c echo.Context) error {
	var entity domain.Entity
	if err := c.Bind(&entity); err != nil {
		return badRequest(c, "invalid entity payload")
	}
	if entity.ID == "" || entity.Name == "" || entity.Kind == "" {
		return badRequest(c, "entity_id, name and entity_type are required")
	}

	if err := h.engine.AddEntity(c.Request().Context(), &entity); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"status":    "success",
		"entity_id": entity.ID,
	})
}

// AddTransaction records a transaction edge
func (h *Handler) AddTransaction(c echo.Context) error {
	var tx domain.Transaction
	if err := c.Bind(&tx); err != nil {
		return badRequest(c, "invalid transaction payload")
	}
	if tx.ID == "" || tx.SenderID == "" || tx.ReceiverID == "" {
		return badRequest(c, "transaction_id, sender_id and receiver_id are required")
	}
	if tx.Timestamp.IsZero() {
		return badRequest(c, "timestamp is required")
	}

	if err := h.engine.AddTransaction(c.Request().Context(), &tx); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"status":         "success",
		"transaction_id": tx.ID,
	})
}

// AddSAR files a suspicious activity report and returns the one-shot
// narrative classification alongside the filing acknowledgment.
func (h *Handler) AddSAR(c echo.Context) error {
	var sar domain.SAR
	if err := c.Bind(&sar); err != nil {
		return badRequest(c, "invalid sar payload")
	}
	if sar.ID == "" || len(sar.EntitiesInvolved) == 0 {
		return badRequest(c, "sar_id and entities_involved are required")
	}
	if sar.FilingDate.IsZero() {
		sar.FilingDate = time.Now().UTC()
	}

	analysis, err := h.engine.AddSAR(c.Request().Context(), &sar)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"status":             "success",
		"sar_id":             sar.ID,
		"narrative_analysis": analysis,
	})
}

// DetectPatterns runs pattern detection for an entity. An optional as_of
// query parameter (RFC 3339) anchors the detection windows.
func (h *Handler) DetectPatterns(c echo.Context) error {
	entityID := c.Param("entity_id")

	var asOf time.Time
	if raw := c.QueryParam("as_of"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return badRequest(c, "as_of must be an RFC 3339 timestamp")
		}
		asOf = parsed
	}

	patterns, err := h.engine.DetectPatterns(c.Request().Context(), entityID, asOf)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "success",
		"entity_id": entityID,
		"patterns":  patterns,
		"count":     len(patterns),
	})
}

// RiskAnalysis returns the full risk report for an entity
func (h *Handler) RiskAnalysis(c echo.Context) error {
	report, err := h.engine.RiskAnalysis(c.Request().Context(), c.Param("entity_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"report": report,
	})
}

// GraphView returns the bounded subgraph around an entity. depth defaults
// to 2.
func (h *Handler) GraphView(c echo.Context) error {
	depth := 2
	if raw := c.QueryParam("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "depth must be an integer")
		}
		depth = parsed
	}

	view, err := h.engine.GraphView(c.Request().Context(), c.Param("entity_id"), depth)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"graph":  view,
	})
}

// SimilarSARs ranks other SARs by narrative similarity. An optional
// threshold query parameter overrides the configured default.
func (h *Handler) SimilarSARs(c echo.Context) error {
	threshold := -1.0
	if raw := c.QueryParam("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 || parsed > 1 {
			return badRequest(c, "threshold must be a number in [0,1]")
		}
		threshold = parsed
	}

	similar, err := h.engine.SimilarSARs(c.Request().Context(), c.Param("sar_id"), threshold)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status":       "success",
		"sar_id":       c.Param("sar_id"),
		"similar_sars": similar,
		"count":        len(similar),
	})
}

// Stats returns system-wide counters
func (h *Handler) Stats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "success",
		"stats":  h.engine.Stats(c.Request().Context()),
	})
}

// fail maps domain errors onto HTTP statuses
func (h *Handler) fail(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateID):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownEntity),
		errors.Is(err, domain.ErrUnknownTransaction):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", logger.ErrorField(err))
	}
	return c.JSON(status, map[string]any{
		"status":  "error",
		"message": err.Error(),
	})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, map[string]any{
		"status":  "error",
		"message": message,
	})
}
