package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-order-assistant/internal/domain"
	"github.com/tbourn/go-order-assistant/internal/http/middleware"
	"github.com/tbourn/go-order-assistant/internal/pipeline"
	"github.com/tbourn/go-order-assistant/internal/services"
)

const (
	headerReplayed      = "Idempotency-Replayed"
	headerRateRemaining = "X-RateLimit-Remaining"
)

// PostMessageRequest is a message submitted outside the WhatsApp webhook.
// MessageID falls back to the Idempotency-Key header, then to a new UUID.
type PostMessageRequest struct {
	MessageID  string `json:"message_id"            example:"order-app-1f2e"`
	SenderID   string `json:"sender_id"             binding:"required" example:"5511999990001"`
	StoreID    string `json:"store_id,omitempty"    example:"store-1"`
	SenderName string `json:"sender_name,omitempty" example:"Ana"`
	Text       string `json:"text"                  binding:"required" example:"Quero uma pizza grande de calabresa"`
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Submit a customer message
// @Description Runs the message through the assistant and returns the outcome and the reply sent.
// @Description Resending with the same Idempotency-Key replays the recorded outcome.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Message id for safe retries"
// @Param       body             body    handlers.PostMessageRequest  true  "Message"
// @Success     200  {object}  pipeline.Result
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     429  {object}  handlers.ErrorResponse
// @Failure     502  {object}  handlers.ErrorResponse  "Reply could not be delivered"
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /api/v1/messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender_id and text are required")
		return
	}
	text := strings.TrimSpace(req.Text)
	sender := strings.TrimSpace(req.SenderID)
	if text == "" || sender == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "sender_id and text are required")
		return
	}
	if utf8.RuneCountInString(text) > h.maxTextRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("text too long: max %d runes", h.maxTextRunes))
		return
	}
	c.Set(middleware.SenderKey, sender)

	key, _ := middleware.GetIdempotencyKey(c)
	msgID := strings.TrimSpace(req.MessageID)
	if msgID == "" {
		msgID = key
	}
	if msgID == "" {
		msgID = "api-" + uuid.NewString()
	}

	if middleware.IsReplay(c) && msgID == key {
		h.replay(c, msgID, sender)
		return
	}

	res, err := h.proc.Process(c.Request.Context(), domain.InboundMessage{
		MessageID:  msgID,
		SenderID:   sender,
		StoreID:    strings.TrimSpace(req.StoreID),
		SenderName: strings.TrimSpace(req.SenderName),
		Text:       text,
		ReceivedAt: h.now().UTC(),
		Channel:    domain.ChannelAPI,
	})
	if res != nil && res.RateRemaining != nil {
		c.Header(headerRateRemaining, strconv.Itoa(*res.RateRemaining))
	}
	switch {
	case errors.Is(err, pipeline.ErrInvalidMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, pipeline.ErrRateLimited):
		c.Header("Retry-After", "60")
		fail(c, http.StatusTooManyRequests, ErrCodeRateLimited, "too many messages from this sender")
		return
	case errors.Is(err, pipeline.ErrExternalSendFailure):
		fail(c, http.StatusBadGateway, ErrCodeSendFailed, "message processed but the reply could not be delivered")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeProcessFailed, err.Error())
		return
	}
	if res.Status == pipeline.StatusDuplicate {
		c.Header(headerReplayed, "true")
	}
	ok(c, http.StatusOK, res)
}

// replay answers a retried key from the activity log. A message still in
// flight has no row yet and is reported as a bare duplicate.
func (h *Handlers) replay(c *gin.Context, msgID, sender string) {
	c.Header(headerReplayed, "true")
	res := &pipeline.Result{Status: pipeline.StatusDuplicate, MessageID: msgID, SenderID: sender}
	if h.activity != nil {
		a, err := h.activity.ByMessage(c.Request.Context(), msgID)
		switch {
		case err == nil:
			res.Activity = a
			res.SenderID = a.SenderID
		case !errors.Is(err, services.ErrActivityNotFound):
			middleware.LoggerFrom(c).Warn().Err(err).Str("message_id", msgID).Msg("replay lookup failed")
		}
	}
	ok(c, http.StatusOK, res)
}
