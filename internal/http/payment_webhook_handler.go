package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mehedi-exx/Hr/internal/domain"
	"github.com/mehedi-exx/Hr/internal/metrics"
	"github.com/mehedi-exx/Hr/internal/service"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw body.
const SignatureHeader = "X-Signature"

// PaymentWebhookHandler receives processor callbacks.
// A 5xx answer asks the processor to redeliver; 4xx answers are final.
type PaymentWebhookHandler struct {
	payments *service.Payments
	logger   *zap.Logger
}

func NewPaymentWebhookHandler(payments *service.Payments, logger *zap.Logger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{payments: payments, logger: logger}
}

type callbackResult struct {
	TransactionID    string `json:"transaction_id"`
	Status           string `json:"status"`
	AlreadyCompleted bool   `json:"already_completed"`
}

func (h *PaymentWebhookHandler) Callback(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r, maxBodyBytes)
	if err != nil {
		metrics.PaymentCallbacksTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusRequestEntityTooLarge, Fail("request body too large"))
		return
	}

	if err := h.payments.VerifySignature(body, r.Header.Get(SignatureHeader)); err != nil {
		metrics.PaymentCallbacksTotal.WithLabelValues("rejected").Inc()
		if errors.Is(err, service.ErrWebhookUnavailable) {
			h.logger.Error("Payment webhook called but no secret is configured")
			writeJSON(w, http.StatusServiceUnavailable, Fail("webhook not configured"))
			return
		}
		h.logger.Warn("Payment callback rejected", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		writeJSON(w, http.StatusUnauthorized, Fail("invalid signature"))
		return
	}

	var cb service.Callback
	if err := json.Unmarshal(body, &cb); err != nil {
		metrics.PaymentCallbacksTotal.WithLabelValues("rejected").Inc()
		writeJSON(w, http.StatusBadRequest, Fail("invalid JSON body"))
		return
	}

	res, err := h.payments.CompleteByCallback(r.Context(), cb)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			metrics.PaymentCallbacksTotal.WithLabelValues("rejected").Inc()
			writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		case errors.Is(err, service.ErrCallbackInFlight):
			metrics.PaymentCallbacksTotal.WithLabelValues("in_flight").Inc()
			w.Header().Set("Retry-After", "5")
			writeJSON(w, http.StatusServiceUnavailable, Fail("payment is being processed, retry later"))
		case errors.Is(err, domain.ErrNotFound):
			metrics.PaymentCallbacksTotal.WithLabelValues("unknown").Inc()
			writeJSON(w, http.StatusNotFound, Fail("transaction not found"))
		default:
			metrics.PaymentCallbacksTotal.WithLabelValues("error").Inc()
			h.logger.Error("Failed to apply payment callback", zap.String("transaction_id", cb.TransactionID), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("temporarily unavailable"))
		}
		return
	}

	outcome := string(res.Payment.Status)
	if res.AlreadyCompleted {
		outcome = "duplicate"
	}
	metrics.PaymentCallbacksTotal.WithLabelValues(outcome).Inc()
	writeJSON(w, http.StatusOK, Ok(callbackResult{
		TransactionID:    res.Payment.TransactionID,
		Status:           string(res.Payment.Status),
		AlreadyCompleted: res.AlreadyCompleted,
	}))
}
