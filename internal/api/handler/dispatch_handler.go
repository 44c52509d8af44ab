package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/derivative-dispatcher/internal/api/dto"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch"
	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
	"github.com/gin-gonic/gin"
)

// HandleEvent handles POST /api/v1/events
// Runs every action triggered by the reported lifecycle event
func (h *DispatchHandler) HandleEvent(c *gin.Context) {
	var req dto.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(c.Request.Context(), "Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	entityType := domain.EntityType(req.EntityType)
	if !entityType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown entity_type: " + req.EntityType,
		})
		return
	}

	event := domain.EventKind(req.Event)
	if !event.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown event: " + req.Event,
		})
		return
	}

	result, err := h.service.HandleEvent(c.Request.Context(), entityType, req.EntityID, event, req.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDispatchResponse(result))
}

// ExecuteAction handles POST /api/v1/actions/:name/execute
// Runs one configured action on one entity
func (h *DispatchHandler) ExecuteAction(c *gin.Context) {
	name := c.Param("name")

	var req dto.ExecuteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WarnContext(c.Request.Context(), "Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	entityType := domain.EntityType(req.EntityType)
	if !entityType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown entity_type: " + req.EntityType,
		})
		return
	}

	result, err := h.service.ExecuteAction(c.Request.Context(), name, entityType, req.EntityID, req.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, toDispatchResponse(result))
}

// ListActions handles GET /api/v1/actions
func (h *DispatchHandler) ListActions(c *gin.Context) {
	actions := h.service.Actions()

	resp := dto.ListActionsResponse{Actions: make([]dto.ActionDTO, 0, len(actions))}
	for _, action := range actions {
		triggers := make([]dto.TriggerDTO, 0, len(action.Triggers))
		for _, trigger := range action.Triggers {
			triggers = append(triggers, dto.TriggerDTO{
				EntityType: string(trigger.EntityType),
				Event:      string(trigger.Event),
			})
		}

		resp.Actions = append(resp.Actions, dto.ActionDTO{
			Name:     action.Name,
			Kind:     string(action.Kind),
			Queue:    action.QueueName,
			Event:    string(action.EventKind),
			Mimetype: action.Mimetype,
			Triggers: triggers,
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (h *DispatchHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownAction), errors.Is(err, domain.ErrEntityNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
	default:
		h.logger.ErrorContext(c.Request.Context(), "Failed to dispatch", slog.Any("error", err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to dispatch",
		})
	}
}

func toDispatchResponse(result *dispatch.Result) dto.DispatchResponse {
	resp := dto.DispatchResponse{
		Outcomes: make([]dto.OutcomeDTO, 0, len(result.Outcomes)),
		Messages: make([]dto.MessageDTO, 0, len(result.Messages)),
	}

	for _, o := range result.Outcomes {
		resp.Outcomes = append(resp.Outcomes, dto.OutcomeDTO{
			Action:     o.Action,
			Kind:       string(o.Kind),
			Queue:      o.Queue,
			EntityType: string(o.EntityType),
			EntityID:   o.EntityID,
			Error:      o.Error,
		})
	}
	for _, m := range result.Messages {
		resp.Messages = append(resp.Messages, dto.MessageDTO{Level: m.Level, Text: m.Text})
	}

	return resp
}
