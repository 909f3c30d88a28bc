package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"debatehub/models"
	"debatehub/services"
)

// DebateController exposes the debate lifecycle over HTTP.
type DebateController struct {
	debates *services.DebateService
}

// NewDebateController creates the controller.
func NewDebateController(debates *services.DebateService) *DebateController {
	return &DebateController{debates: debates}
}

// statusForError maps core errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrDebateNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrAlreadyJoined),
		errors.Is(err, services.ErrInvalidWinner):
		return http.StatusConflict
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrNotParticipant):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.JSON(statusForError(err), gin.H{"error": err.Error()})
}

// CreateDebate handles POST /debates.
func (ctl *DebateController) CreateDebate(c *gin.Context) {
	var request struct {
		Topic       string `json:"topic"`
		Description string `json:"description"`
		Mode        string `json:"mode"`
		CreatorID   string `json:"creatorId"`
		Side        string `json:"side"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	debate, err := ctl.debates.CreateDebate(c.Request.Context(),
		request.Topic, request.Description,
		models.DebateMode(request.Mode),
		request.CreatorID,
		models.ParticipantSide(request.Side))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, debate)
}

// ListDebates handles GET /debates?status=.
func (ctl *DebateController) ListDebates(c *gin.Context) {
	status := models.DebateStatus(c.Query("status"))
	debates, err := ctl.debates.ListDebates(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"debates": debates})
}

// GetDebate handles GET /debates/:id.
func (ctl *DebateController) GetDebate(c *gin.Context) {
	debate, err := ctl.debates.GetDebate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debate)
}

// DeleteDebate handles DELETE /debates/:id.
func (ctl *DebateController) DeleteDebate(c *gin.Context) {
	if err := ctl.debates.DeleteDebate(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// JoinDebate handles POST /debates/:id/join.
func (ctl *DebateController) JoinDebate(c *gin.Context) {
	var request struct {
		UserID string `json:"userId"`
		Side   string `json:"side"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	participant, err := ctl.debates.Join(c.Request.Context(), c.Param("id"),
		request.UserID, models.ParticipantSide(request.Side))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, participant)
}

// ChangeSide handles POST /debates/:id/side.
func (ctl *DebateController) ChangeSide(c *gin.Context) {
	var request struct {
		UserID string `json:"userId"`
		Side   string `json:"side"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	err := ctl.debates.ChangeSide(c.Request.Context(), c.Param("id"),
		request.UserID, models.ParticipantSide(request.Side))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "side updated"})
}

// StartDebate handles POST /debates/:id/start.
func (ctl *DebateController) StartDebate(c *gin.Context) {
	debate, err := ctl.debates.Start(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debate)
}

// SendMessage handles POST /debates/:id/messages.
func (ctl *DebateController) SendMessage(c *gin.Context) {
	var request struct {
		UserID  string `json:"userId"`
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	message, err := ctl.debates.SendMessage(c.Request.Context(), c.Param("id"),
		request.UserID, request.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// ListMessages handles GET /debates/:id/messages.
func (ctl *DebateController) ListMessages(c *gin.Context) {
	messages, err := ctl.debates.ListMessages(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListParticipants handles GET /debates/:id/participants.
func (ctl *DebateController) ListParticipants(c *gin.Context) {
	participants, err := ctl.debates.ListParticipants(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// ConcludeDebate handles POST /debates/:id/conclude.
func (ctl *DebateController) ConcludeDebate(c *gin.Context) {
	var request struct {
		WinnerID string `json:"winnerId"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON"})
		return
	}

	debate, err := ctl.debates.Conclude(c.Request.Context(), c.Param("id"), request.WinnerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, debate)
}
