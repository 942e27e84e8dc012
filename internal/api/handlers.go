/**
 * @description
 * This file contains the HTTP handlers for the settlement service: the
 * inbound payment gateway webhook endpoint and the administrative order
 * endpoints used by the dashboard.
 *
 * Key features:
 * - Security: Validates the HMAC signature of incoming webhooks before any
 *   parsing happens; a mismatch fails closed.
 * - Acknowledgement policy: permanently-invalid deliveries still receive a
 *   2xx so the gateway stops retrying them, while storage failures return a
 *   5xx so the gateway redelivers.
 *
 * @dependencies
 * - crypto/hmac, crypto/sha1, crypto/sha256, encoding/base64, encoding/hex:
 *   For webhook signature validation.
 * - encoding/json, net/http: Standard HTTP plumbing.
 * - The service's internal packages for the processor and admin service.
 */
package api

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/labelhq/settlement-service/internal/app"
	"github.com/labelhq/settlement-service/internal/domain"
	"github.com/labelhq/settlement-service/internal/store"
)

// SignatureHeader carries the gateway's HMAC over the raw body.
const SignatureHeader = "X-Gateway-Signature"

// Handler bundles the HTTP handlers with their collaborators.
type Handler struct {
	processor *app.WebhookProcessor
	service   *app.Service
	escalator *app.Escalator
	secret    string
}

// NewHandler creates the handler set.
func NewHandler(processor *app.WebhookProcessor, service *app.Service, escalator *app.Escalator, webhookSecret string) *Handler {
	return &Handler{
		processor: processor,
		service:   service,
		escalator: escalator,
		secret:    strings.TrimSpace(webhookSecret),
	}
}

// handleGatewayWebhook is the entry point for gateway deliveries.
func (h *Handler) handleGatewayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("level=warn component=webhook msg=\"failed to read webhook body\" err=%v", err)
		http.Error(w, "Cannot read request body", http.StatusBadRequest)
		return
	}

	if !h.isValidSignature(r.Header.Get(SignatureHeader), body) {
		// Fails closed, but is still acknowledged: a permanently bad
		// signature will never become valid through gateway retries.
		h.escalator.Escalate(r.Context(), domain.EscalationInvalidSignature, "",
			"webhook signature mismatch", body, false)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Webhook received"))
		return
	}

	outcome := h.processor.ProcessEvent(r.Context(), body)
	if !outcome.Ack {
		// Withholding the acknowledgement makes the gateway redeliver once
		// storage is healthy again.
		http.Error(w, "Temporary processing failure", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Webhook received"))
}

// isValidSignature validates the HMAC signature of the webhook. The gateway
// signs the raw body with the shared secret and sends either HMAC-SHA256
// (hex or base64, optionally "sha256="-prefixed) or legacy HMAC-SHA1 base64.
func (h *Handler) isValidSignature(signatureHeader string, body []byte) bool {
	if h.secret == "" {
		log.Println("level=warn component=webhook msg=\"GATEWAY_WEBHOOK_SECRET is not set; skipping signature validation\"")
		return true
	}

	header := strings.TrimSpace(signatureHeader)
	if header == "" {
		return false
	}
	if strings.HasPrefix(strings.ToLower(header), "sha256=") {
		header = strings.TrimSpace(header[len("sha256="):])
	}

	sha256Mac := hmac.New(sha256.New, []byte(h.secret))
	sha256Mac.Write(body)
	sha256Expected := sha256Mac.Sum(nil)

	sha1Mac := hmac.New(sha1.New, []byte(h.secret))
	sha1Mac.Write(body)
	sha1Expected := sha1Mac.Sum(nil)

	if decoded, err := hex.DecodeString(header); err == nil {
		if hmac.Equal(decoded, sha256Expected) || hmac.Equal(decoded, sha1Expected) {
			return true
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(header); err == nil {
		if hmac.Equal(decoded, sha256Expected) || hmac.Equal(decoded, sha1Expected) {
			return true
		}
	}

	return false
}

// handleGetOrder returns one order for the dashboard.
func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			http.Error(w, "Order not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to load order", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// handleResendOrder re-attempts the buyer confirmation email.
func (h *Handler) handleResendOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.ResendOrderConfirmation(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, app.ErrResendNotAllowed):
			http.Error(w, "Order is not in a resendable state", http.StatusConflict)
		default:
			http.Error(w, "Failed to resend confirmation", http.StatusBadGateway)
		}
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// handleCancelOrder performs the administrative cancel.
func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseOrderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.CancelOrder(r.Context(), orderID)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOrderNotFound):
			http.Error(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, app.ErrCancelNotAllowed):
			http.Error(w, "Order cannot be canceled", http.StatusConflict)
		default:
			http.Error(w, "Failed to cancel order", http.StatusInternalServerError)
		}
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// handleSettleEarning triggers settlement for one music earning.
func (h *Handler) handleSettleEarning(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	earningID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid earning id", http.StatusBadRequest)
		return
	}

	earning, err := h.service.SettleEarning(r.Context(), earningID)
	if err != nil {
		http.Error(w, "Failed to settle earning", http.StatusInternalServerError)
		return
	}
	if earning == nil {
		// Already claimed or settled; idempotent for the caller.
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("Earning already settling or settled"))
		return
	}

	respondJSON(w, http.StatusOK, earning)
}

// handleRecuperableBalance reports a release's remaining unrecovered expense
// balance.
func (h *Handler) handleRecuperableBalance(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	releaseID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid release id", http.StatusBadRequest)
		return
	}

	balance, err := h.service.OutstandingRecuperableBalance(r.Context(), releaseID)
	if err != nil {
		http.Error(w, "Failed to load recuperable balance", http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"release_id":          releaseID.String(),
		"outstanding_balance": balance.StringFixed(2),
	})
}

func parseOrderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return orderID, true
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("level=warn component=api msg=\"failed to encode response\" err=%v", err)
	}
}
