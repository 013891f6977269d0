package payment

import (
	"crypto/subtle"
	"net/http"

	"cryptopay/internal/logger"
	"cryptopay/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// WebhookHandler authenticates gateway callbacks and feeds them into
// the reconciler. Only an authentication failure ever produces a
// non-200 response: anything internal (unknown reference, already
// processed, store error) is acknowledged so the gateway does not
// redeliver forever.
type WebhookHandler struct {
	svc    Service
	secret string
	dedupe *Deduper
}

func NewWebhookHandler(svc Service, secret string, dedupe *Deduper) *WebhookHandler {
	return &WebhookHandler{svc: svc, secret: secret, dedupe: dedupe}
}

type webhookPayload struct {
	Status    string              `json:"status"`
	OrderID   string              `json:"order_id"`
	InvoiceID string              `json:"invoice_id"`
	Amount    decimal.NullDecimal `json:"amount"`
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	secret := c.GetHeader("X-Webhook-Secret")
	if subtle.ConstantTimeCompare([]byte(secret), []byte(h.secret)) != 1 {
		metrics.RecordWebhook("unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "webhook not authorized"})
		return
	}

	var p webhookPayload
	if err := c.ShouldBindJSON(&p); err != nil {
		metrics.RecordWebhook("malformed")
		c.String(http.StatusOK, "OK")
		return
	}

	ref := p.OrderID
	if ref == "" {
		ref = p.InvoiceID
	}
	if ref == "" || p.Status == "" {
		metrics.RecordWebhook("malformed")
		c.String(http.StatusOK, "OK")
		return
	}

	if h.dedupe.Seen(c.Request.Context(), ref+":"+p.Status) {
		metrics.RecordWebhook("duplicate")
		c.String(http.StatusOK, "OK")
		return
	}

	err := h.svc.HandleGatewayEvent(c.Request.Context(), Event{
		Status: p.Status,
		Ref:    ref,
		Amount: p.Amount,
	})
	if err != nil {
		// Still acknowledged; the gateway retry cannot fix a local
		// store error and the poll path will catch up.
		logger.Errorf("webhook processing failed for ref %s: %v", ref, err)
		metrics.RecordWebhook("error")
		c.String(http.StatusOK, "OK")
		return
	}

	metrics.RecordWebhook("processed")
	c.String(http.StatusOK, "OK")
}
