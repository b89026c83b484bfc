package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/repo"
	"github.com/tbourn/go-order-assistant/internal/services"
	"github.com/tbourn/go-order-assistant/internal/sysutil"
	"github.com/tbourn/go-order-assistant/internal/utils"
)

// Pagination is the paging block of list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListActivityResponse is one page of the activity log.
type ListActivityResponse struct {
	Activity   []domain.Activity `json:"activity"`
	Pagination Pagination        `json:"pagination"`
}

// EscalationsResponse counts escalated messages per intent.
type EscalationsResponse struct {
	Since  time.Time        `json:"since"`
	Counts map[string]int64 `json:"counts"`
}

// ListActivity godoc
// @ID          listActivity
// @Summary     List processed messages
// @Description Newest first. Supports a weak ETag via If-None-Match.
// @Tags        Activity
// @Produce     json
// @Param       page       query  int     false  "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false  "Items per page"  minimum(1) maximum(100) default(20)
// @Param       sender     query  string  false  "Only this sender"
// @Param       escalated  query  bool    false  "Only escalated messages"
// @Success     200  {object}  handlers.ListActivityResponse
// @Success     304  "Not modified"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /api/v1/activity [get]
func (h *Handlers) ListActivity(c *gin.Context) {
	ctx := c.Request.Context()
	f := repo.ActivityFilter{
		SenderID:      strings.TrimSpace(c.Query("sender")),
		EscalatedOnly: sysutil.IsTruthy(c.Query("escalated")),
	}
	page, size := utils.DefaultPageParams.Clamp(c.Query("page"), c.Query("page_size"))

	if n, newest, err := h.activity.Stats(ctx, f); err == nil {
		var ts int64
		if newest != nil {
			ts = newest.UnixNano()
		}
		etag := fmt.Sprintf(`W/"activity:%s:%t:%d:%d:%d:%d"`, f.SenderID, f.EscalatedOnly, page, size, n, ts)
		c.Header("ETag", etag)
		if c.GetHeader("If-None-Match") == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, total, err := h.activity.ListPage(ctx, f, page, size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	pages := utils.TotalPages(total, size)
	ok(c, http.StatusOK, ListActivityResponse{
		Activity: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   size,
			Total:      total,
			TotalPages: pages,
			HasNext:    page < pages,
		},
	})
}

// GetActivity godoc
// @ID          getActivity
// @Summary     Activity for one message
// @Tags        Activity
// @Produce     json
// @Param       message_id  path  string  true  "Provider message id"
// @Success     200  {object}  domain.Activity
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /api/v1/activity/messages/{message_id} [get]
func (h *Handlers) GetActivity(c *gin.Context) {
	a, err := h.activity.ByMessage(c.Request.Context(), c.Param("message_id"))
	switch {
	case errors.Is(err, services.ErrActivityNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "activity not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	default:
		ok(c, http.StatusOK, a)
	}
}

// Escalations godoc
// @ID          escalations
// @Summary     Escalations by intent
// @Description Counts messages flagged for human follow-up within the window.
// @Tags        Activity
// @Produce     json
// @Param       window  query  string  false  "Go duration, e.g. 24h"  default(24h)
// @Success     200  {object}  handlers.EscalationsResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /api/v1/activity/escalations [get]
func (h *Handlers) Escalations(c *gin.Context) {
	window := 24 * time.Hour
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "window must be a positive duration")
			return
		}
		window = d
	}
	since := h.now().UTC().Add(-window)
	counts, err := h.activity.Escalations(c.Request.Context(), since)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, EscalationsResponse{Since: since, Counts: counts})
}
