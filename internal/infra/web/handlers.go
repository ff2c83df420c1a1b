package web

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"telegram-channel-subscription/internal/infra/logging"
	"telegram-channel-subscription/internal/usecase"
)

// webhookPayload mirrors the JSON shape some gateway configurations deliver.
// Form-encoded deliveries are decoded field by field in parseNotification.
type webhookPayload struct {
	PaymentRequestID string            `json:"payment_request_id"`
	Status           string            `json:"status"`
	Purpose          string            `json:"purpose"`
	Metadata         map[string]string `json:"metadata"`
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	n, ok := s.parseNotification(r)
	if !ok {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := logging.WithTraceID(r.Context(), middleware.GetReqID(r.Context()))
	outcome, err := s.accessUC.HandlePaymentNotification(ctx, n)
	if err != nil {
		// The reference stays unprocessed, so the gateway's redelivery will
		// retry. Acknowledge anyway: the payload itself was well-formed.
		s.log.Error().Err(err).Str("request_id", n.RequestID).Msg("webhook handling failed")
	}
	s.log.Info().
		Str("request_id", n.RequestID).
		Str("outcome", string(outcome)).
		Msg("webhook processed")

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) parseNotification(r *http.Request) (usecase.PaymentNotification, bool) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var p webhookPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			s.log.Warn().Err(err).Msg("malformed webhook JSON body")
			return usecase.PaymentNotification{}, false
		}
		return usecase.PaymentNotification{
			RequestID: p.PaymentRequestID,
			Status:    p.Status,
			Purpose:   p.Purpose,
			Metadata:  p.Metadata,
		}, true
	}

	if err := r.ParseForm(); err != nil {
		s.log.Warn().Err(err).Msg("malformed webhook form body")
		return usecase.PaymentNotification{}, false
	}
	return usecase.PaymentNotification{
		RequestID: r.PostFormValue("payment_request_id"),
		Status:    r.PostFormValue("status"),
		Purpose:   r.PostFormValue("purpose"),
	}, true
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	expired, err := s.sweepUC.Sweep(r.Context(), time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("manual sweep failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sweep failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"expired": expired})
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.accessUC.PendingVerifications(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("listing pending verifications failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "listing failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(pending), "data": pending})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<html><body><h2>Payment received 🎉</h2><p>Check your Telegram chat for the channel invite link.</p></body></html>`))
}

func (s *Server) handlePaymentFailed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<html><body><h2>Payment not completed</h2><p>You can retry from the bot with /start.</p></body></html>`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
