package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/weijianfa/ApolloOracle/internal/domain/errors"
	"github.com/weijianfa/ApolloOracle/internal/domain/model"
	"github.com/weijianfa/ApolloOracle/internal/pkg/signature"
	"github.com/weijianfa/ApolloOracle/internal/server/http/dto"
	"github.com/weijianfa/ApolloOracle/internal/usecase"
)

// SignatureHeader carries the provider's hex-encoded HMAC of the raw body.
const SignatureHeader = "X-Signature"

// WebhookHandler receives payment provider callbacks.
type WebhookHandler struct {
	facade   WebhookFacade
	verifier *signature.Verifier
	logger   *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade, verifier *signature.Verifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{facade: facade, verifier: verifier, logger: logger}
}

// Receive handles POST /webhook/payment. The signature is checked against
// the raw body before any decoding happens.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	if !h.verifier.Verify(body, c.GetHeader(SignatureHeader)) {
		h.logger.Warn("webhook signature rejected", slog.String("remote", c.ClientIP()))
		c.Status(http.StatusUnauthorized)
		return
	}

	var req dto.WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	if req.OrderID == "" || req.Status == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	evt := model.WebhookEvent{
		OrderID:          req.OrderID,
		EventID:          req.EventID,
		Status:           model.PaymentStatus(req.Status),
		PaymentReference: req.PaymentReference,
		Amount:           req.Amount,
		Currency:         req.Currency,
		ErrorMessage:     req.ErrorMessage,
	}
	if req.Timestamp > 0 {
		evt.Timestamp = time.Unix(req.Timestamp, 0).UTC()
	}

	outcome, err := h.facade.ProcessPaymentEvent(c.Request.Context(), evt)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			// Ack unknown orders so the provider stops redelivering.
			h.logger.Warn("webhook for unknown order", slog.String("order", req.OrderID))
			c.JSON(http.StatusOK, dto.WebhookResponse{Result: "acknowledged"})
			return
		}
		if errors.Is(err, usecase.ErrUnknownPaymentStatus) {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	c.JSON(http.StatusOK, dto.WebhookResponse{Result: string(outcome)})
}
