package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-assistant/internal/http/middleware"
	"github.com/tbourn/go-order-assistant/internal/services"
)

// GetSession godoc
// @ID          getSession
// @Summary     Inspect a live session
// @Description Returns the sender's step, cart, history and conversation health.
// @Tags        Sessions
// @Produce     json
// @Param       sender  path  string  true  "Sender id (WhatsApp number)"
// @Success     200  {object}  services.SessionView
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /api/v1/sessions/{sender} [get]
func (h *Handlers) GetSession(c *gin.Context) {
	sender := c.Param("sender")
	c.Set(middleware.SenderKey, sender)

	v, err := h.sessions.Inspect(c.Request.Context(), sender)
	if err != nil {
		h.sessionError(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// ResetSession godoc
// @ID          resetSession
// @Summary     Reset a session
// @Description Discards the sender's session; the next message starts from the greeting.
// @Tags        Sessions
// @Param       sender  path  string  true  "Sender id (WhatsApp number)"
// @Success     204
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /api/v1/sessions/{sender} [delete]
func (h *Handlers) ResetSession(c *gin.Context) {
	sender := c.Param("sender")
	c.Set(middleware.SenderKey, sender)

	if err := h.sessions.Reset(c.Request.Context(), sender); err != nil {
		h.sessionError(c, err)
		return
	}
	noContent(c)
}

func (h *Handlers) sessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "session not found")
	case errors.Is(err, services.ErrInvalidSender):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
