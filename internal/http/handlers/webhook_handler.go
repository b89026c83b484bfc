package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-order-assistant/internal/channel"
	"github.com/tbourn/go-order-assistant/internal/http/middleware"
	"github.com/tbourn/go-order-assistant/internal/pipeline"
)

// WebhookAck is returned for every parsable delivery so Meta does not retry.
type WebhookAck struct {
	Received   int `json:"received"`
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

// VerifyWebhook godoc
// @ID          verifyWebhook
// @Summary     Webhook verification handshake
// @Description Echoes hub.challenge when hub.mode is "subscribe" and the token matches.
// @Tags        Webhook
// @Produce     plain
// @Param       hub.mode          query  string  true  "Must be subscribe"
// @Param       hub.verify_token  query  string  true  "Shared verification token"
// @Param       hub.challenge     query  string  true  "Value to echo"
// @Success     200  {string}  string  "challenge"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     403  {object}  handlers.ErrorResponse
// @Router      /webhook [get]
func (h *Handlers) VerifyWebhook(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	if mode == "" || token == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "missing verification parameters")
		return
	}
	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		fail(c, http.StatusForbidden, ErrCodeForbidden, "verification refused")
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

// ReceiveWebhook godoc
// @ID          receiveWebhook
// @Summary     Receive WhatsApp messages
// @Description Runs each text-bearing message of a Cloud API delivery through the assistant.
// @Description Per-message failures are counted, not surfaced, so the provider does not redeliver.
// @Tags        Webhook
// @Accept      json
// @Produce     json
// @Param       X-Hub-Signature-256  header  string  false  "sha256 HMAC of the body"
// @Param       X-Store-ID           header  string  false  "Store that owns the number"
// @Success     200  {object}  handlers.WebhookAck
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /webhook [post]
func (h *Handlers) ReceiveWebhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unreadable body")
		return
	}
	storeID := strings.TrimSpace(c.GetHeader("X-Store-ID"))
	if storeID == "" {
		storeID = h.storeID
	}
	d, err := channel.ParseWebhook(body, storeID, h.now())
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	lg := middleware.LoggerFrom(c)
	ack := WebhookAck{Received: len(d.Messages), Skipped: d.Skipped}
	for _, msg := range d.Messages {
		res, err := h.proc.Process(c.Request.Context(), msg)
		switch {
		case err == nil && res != nil && res.Status == pipeline.StatusDuplicate:
			ack.Duplicates++
		case err == nil:
			ack.Processed++
			h.markRead(c, msg.MessageID)
		case errors.Is(err, pipeline.ErrExternalSendFailure):
			// The turn was applied; only the reply was lost.
			ack.Processed++
			ack.Failed++
			lg.Warn().Err(err).Str("message_id", msg.MessageID).Msg("webhook reply not delivered")
			h.markRead(c, msg.MessageID)
		default:
			ack.Failed++
			lg.Warn().Err(err).Str("message_id", msg.MessageID).Msg("webhook message not processed")
		}
	}
	ok(c, http.StatusOK, ack)
}

// markRead failures are logged only; the message was already handled.
func (h *Handlers) markRead(c *gin.Context, messageID string) {
	if h.reads == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.readTimeout)
	defer cancel()
	if err := h.reads.MarkRead(ctx, messageID); err != nil {
		middleware.LoggerFrom(c).Warn().Err(err).Str("message_id", messageID).Msg("read receipt not sent")
	}
}
