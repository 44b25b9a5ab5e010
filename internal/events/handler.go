package events

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gatherly/backend/internal/middleware"
	"github.com/gatherly/backend/internal/models"
	"github.com/gatherly/backend/pkg/response"
)

// CreateEventRequest is the body for POST /events.
type CreateEventRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Featured    bool       `json:"featured"`
	Capacity    *int       `json:"capacity"`
	StartsAt    time.Time  `json:"starts_at" binding:"required"`
	EndsAt      *time.Time `json:"ends_at"`
}

// RejectRequest is the body for POST /admin/events/:id/reject.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an events handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Create handles POST /events. The event starts in draft, owned by the caller.
func (h *Handler) Create(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ev, err := h.svc.Create(c.Request.Context(), caller, CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Featured:    req.Featured,
		Capacity:    req.Capacity,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.Created(c, ev)
}

// Get handles GET /events/:id. The path segment is an event ID or a slug.
// Unpublished events are visible only to their owner and admins.
func (h *Handler) Get(c *gin.Context) {
	var ev *models.Event
	var err error
	if id, parseErr := uuid.Parse(c.Param("id")); parseErr == nil {
		ev, err = h.svc.Get(c.Request.Context(), id)
	} else {
		ev, err = h.svc.GetBySlug(c.Request.Context(), c.Param("id"))
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if ev.Status != models.EventPublished {
		caller, ok := middleware.CallerFrom(c)
		if !ok || !caller.CanModerate(ev.OwnerID) {
			response.NotFound(c, "event not found")
			return
		}
	}
	response.OK(c, ev)
}

// List handles GET /events: the public catalogue, published events only.
func (h *Handler) List(c *gin.Context) {
	opts := h.listOptions(c)
	published := models.EventPublished
	opts.Status = &published
	list, pagination, err := h.svc.List(c.Request.Context(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"events": list, "pagination": pagination})
}

// MyEvents handles GET /my/events: the caller's own events in every status,
// so owners can track drafts and pending submissions.
func (h *Handler) MyEvents(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	opts := h.listOptions(c)
	opts.OwnerID = &caller.ID
	if s := c.Query("status"); s != "" {
		status := models.EventStatus(s)
		if !status.Valid() {
			response.BadRequest(c, "invalid status filter")
			return
		}
		opts.Status = &status
	}
	list, pagination, err := h.svc.List(c.Request.Context(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"events": list, "pagination": pagination})
}

// AdminList handles GET /admin/events: the moderation listing, all statuses.
func (h *Handler) AdminList(c *gin.Context) {
	opts := h.listOptions(c)
	if s := c.Query("status"); s != "" {
		status := models.EventStatus(s)
		if !status.Valid() {
			response.BadRequest(c, "invalid status filter")
			return
		}
		opts.Status = &status
	}
	list, pagination, err := h.svc.List(c.Request.Context(), opts)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, gin.H{"events": list, "pagination": pagination})
}

// Submit handles POST /events/:id/submit (owner: draft -> pending review).
func (h *Handler) Submit(c *gin.Context) {
	h.transition(c, h.svc.SubmitForReview)
}

// Withdraw handles POST /events/:id/withdraw (owner: pre-terminal -> cancelled).
func (h *Handler) Withdraw(c *gin.Context) {
	h.transition(c, h.svc.Withdraw)
}

// Approve handles POST /admin/events/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.transition(c, h.svc.Approve)
}

// Reject handles POST /admin/events/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, "invalid request: "+err.Error())
			return
		}
	}
	ev, err := h.svc.Reject(c.Request.Context(), caller, id, req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, ev)
}

func (h *Handler) transition(c *gin.Context, fn func(ctx context.Context, caller models.Caller, id uuid.UUID) (*models.Event, error)) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	ev, err := fn(c.Request.Context(), caller, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	response.OK(c, ev)
}

func (h *Handler) listOptions(c *gin.Context) ListOptions {
	opts := ListOptions{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		SortBy:   c.Query("sortBy"),
		Order:    models.ParseSortOrder(c.Query("sortOrder")),
		Page:     intQuery(c, "page", 1),
		Limit:    intQuery(c, "limit", 20),
	}
	if f := c.Query("featured"); f != "" {
		featured := f == "true" || f == "1"
		opts.Featured = &featured
	}
	if from := c.Query("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			opts.From = &t
		}
	}
	if to := c.Query("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			opts.To = &t
		}
	}
	return opts
}

func intQuery(c *gin.Context, key string, fallback int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func (h *Handler) respondError(c *gin.Context, err error) {
	var tr *TransitionError
	switch {
	case errors.Is(err, ErrInvalidInput):
		response.BadRequest(c, err.Error())
	case errors.Is(err, ErrNotFound):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "insufficient permissions for this event")
	case errors.As(err, &tr):
		response.Conflict(c, response.CodeInvalidTransition, tr.Error(), tr.Event)
	default:
		h.logger.Error("event operation failed", zap.Error(err))
		response.Internal(c, "event operation failed")
	}
}
