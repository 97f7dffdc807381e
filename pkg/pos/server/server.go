// Package server exposes the storefront's HTTP API: payment request
// metadata, merchant sign-in, purchase transaction construction, and the
// registration event poll endpoint.
package server

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/barcode-pay/pos-server/pkg/pos/event"
	"github.com/barcode-pay/pos-server/pkg/pos/payment"
)

const iconPath = "/solana-pay-logo.svg"

// Server handles the /api endpoint.
type Server struct {
	log *logrus.Entry

	label       string
	bridge      *event.Bridge
	provisioner *payment.Provisioner
	builder     *payment.Builder

	limiter *rate.Limiter
}

func New(
	label string,
	bridge *event.Bridge,
	provisioner *payment.Provisioner,
	builder *payment.Builder,
	requestsPerSecond float64,
) *Server {
	return &Server{
		log:         logrus.StandardLogger().WithField("type", "pos/server"),
		label:       label,
		bridge:      bridge,
		provisioner: provisioner,
		builder:     builder,
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), int(requestsPerSecond)+1),
	}
}

func (s *Server) RegisterRoutes(r *chi.Mux) {
	r.Use(WithRequestID)
	r.Use(WithLogging(s.log))
	r.Use(WithCORS)
	r.Use(WithRateLimit(s.limiter))

	r.Get("/api", s.get)
	r.Post("/api", s.post)
}

type errorResponse struct {
	Error string `json:"error"`
}

type eventResponse struct {
	Event string `json:"event"`
	Value string `json:"value"`
}

type metadataResponse struct {
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

type transactionResponse struct {
	Transaction string `json:"transaction,omitempty"`
	Message     string `json:"message,omitempty"`
}

// dataParams is the client-supplied request description carried in the
// "data" query parameter as JSON.
type dataParams struct {
	Action string `json:"action"`
	Label  string `json:"label"`
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("newest") == "event" {
		eventName, value := s.bridge.Latest()
		respond(w, http.StatusOK, eventResponse{Event: eventName, Value: value})
		return
	}

	data := r.URL.Query().Get("data")
	if data == "" {
		respond(w, http.StatusBadRequest, errorResponse{Error: "missing_parameter"})
		return
	}

	var params dataParams
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid_parameter"})
		return
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	// Wallets send back the label they were shown; echo it, falling back
	// to the configured store label.
	label := params.Label
	if label == "" {
		label = s.label
	}

	respond(w, http.StatusOK, metadataResponse{
		Label: label,
		Icon:  scheme + "://" + r.Host + iconPath,
	})
}

type postRequest struct {
	Account string `json:"account"`
}

func (s *Server) post(w http.ResponseWriter, r *http.Request) {
	data := r.URL.Query().Get("data")
	if data == "" {
		respond(w, http.StatusBadRequest, errorResponse{Error: "missing_parameter"})
		return
	}

	var params dataParams
	if err := json.Unmarshal([]byte(data), &params); err != nil {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid_parameter"})
		return
	}

	var req postRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		respond(w, http.StatusBadRequest, errorResponse{Error: "missing_parameter"})
		return
	}

	account, err := base58.Decode(req.Account)
	if err != nil || len(account) != 32 {
		respond(w, http.StatusBadRequest, errorResponse{Error: "invalid_parameter"})
		return
	}

	if params.Action == "signin" {
		s.signIn(w, r, account)
		return
	}

	transfer, err := s.builder.BuildTransfer(account)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, transactionResponse{
		Transaction: base64.StdEncoding.EncodeToString(transfer.Transaction),
		Message:     transfer.Message,
	})
}

// signIn provisions a token account for the posting wallet.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request, merchant ed25519.PublicKey) {
	result, err := s.provisioner.EnsureMerchantAccount(merchant)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	switch result.Outcome {
	case payment.NeedsSignature:
		respond(w, http.StatusOK, transactionResponse{
			Transaction: base64.StdEncoding.EncodeToString(result.Transaction),
			Message:     result.Message,
		})
	default:
		// AlreadyProvisioned, or a lost provisioning race the caller can
		// simply wait out.
		respond(w, http.StatusOK, struct{}{})
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var tag string

	switch errors.Cause(err) {
	case payment.ErrPayerNotFound:
		status, tag = http.StatusNotFound, "payer_not_found"
	case payment.ErrSenderUninitialized:
		status, tag = http.StatusConflict, "sender_uninitialized"
	case payment.ErrSenderFrozen:
		status, tag = http.StatusConflict, "sender_frozen"
	case payment.ErrMintUninitialized:
		status, tag = http.StatusConflict, "mint_uninitialized"
	case payment.ErrInsufficientFunds:
		status, tag = http.StatusPaymentRequired, "insufficient_funds"
	case payment.ErrMerchantAccountUnavailable:
		status, tag = http.StatusBadGateway, "merchant_account_unavailable"
	case payment.ErrNetworkUnavailable:
		status, tag = http.StatusServiceUnavailable, "network_unavailable"
	default:
		status, tag = http.StatusInternalServerError, "internal"
	}

	s.log.WithFields(logrus.Fields{
		"status":     status,
		"request_id": RequestIDFromContext(r.Context()),
	}).WithError(err).Warn("request failed")

	respond(w, status, errorResponse{Error: tag})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
