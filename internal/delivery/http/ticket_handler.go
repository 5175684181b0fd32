package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vogiaan1904/transit-reservation/internal/service"
)

// GetTicket handles ticket lookup requests
func (h *HTTPHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if ticketID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Ticket ID is required", nil)
		return
	}

	ticket, err := h.tickets.GetTicket(r.Context(), ticketID)
	if err != nil {
		h.respondTicketError(w, r, err, "Failed to get ticket")
		return
	}

	h.respondJSON(w, http.StatusOK, newTicketResponse(ticket))
}

// GetTicketByCode handles lookup by the printed ticket code
func (h *HTTPHandler) GetTicketByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		h.respondError(w, r, http.StatusBadRequest, "Ticket code is required", nil)
		return
	}

	ticket, err := h.tickets.GetTicketByCode(r.Context(), code)
	if err != nil {
		h.respondTicketError(w, r, err, "Failed to get ticket")
		return
	}

	h.respondJSON(w, http.StatusOK, newTicketResponse(ticket))
}

type boardRequest struct {
	QRPayload string `json:"qr_payload"`
}

// BoardTicket handles boarding scan requests
func (h *HTTPHandler) BoardTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if ticketID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Ticket ID is required", nil)
		return
	}

	// The body is optional: gate scanners send the QR payload, manual
	// boarding sends nothing.
	var req boardRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	ticket, err := h.tickets.Board(r.Context(), ticketID, req.QRPayload)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			h.respondError(w, r, http.StatusNotFound, "Ticket not found", err)
		case errors.Is(err, service.ErrInvalidQRCode):
			h.respondError(w, r, http.StatusForbidden, "QR payload does not verify for this ticket", err)
		case errors.Is(err, service.ErrTicketNotActive):
			h.respondError(w, r, http.StatusConflict, "Ticket is not active", err)
		default:
			h.l.Errorf(r.Context(), "Failed to board ticket: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to board ticket", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, newTicketResponse(ticket))
}

// CreateTransferToken handles transfer token creation requests
func (h *HTTPHandler) CreateTransferToken(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if ticketID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Ticket ID is required", nil)
		return
	}

	token, err := h.transfers.CreateTransferToken(r.Context(), ticketID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			h.respondError(w, r, http.StatusNotFound, "Ticket not found", err)
		case errors.Is(err, service.ErrTicketNotActive):
			h.respondError(w, r, http.StatusForbidden, "Only active tickets can be transferred", err)
		case errors.Is(err, service.ErrTransferLimitExceeded):
			h.respondError(w, r, http.StatusForbidden, "Ticket has reached its transfer limit", err)
		default:
			h.l.Errorf(r.Context(), "Failed to create transfer token: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to create transfer token", err)
		}
		return
	}

	h.respondJSON(w, http.StatusCreated, newTransferTokenResponse(token))
}

// RedeemTransfer handles transfer redemption requests
func (h *HTTPHandler) RedeemTransfer(w http.ResponseWriter, r *http.Request) {
	var req service.RedeemTransferInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, r, http.StatusBadRequest, "Validation failed", err)
		return
	}

	ticket, err := h.transfers.RedeemTransferToken(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound):
			h.respondError(w, r, http.StatusNotFound, "Transfer token not found", err)
		case errors.Is(err, service.ErrTokenExpired):
			h.respondError(w, r, http.StatusGone, "Transfer token has expired", err)
		case errors.Is(err, service.ErrTokenAlreadyRedeemed):
			h.respondError(w, r, http.StatusGone, "Transfer token was already redeemed", err)
		case errors.Is(err, service.ErrTicketNotActive):
			h.respondError(w, r, http.StatusForbidden, "Ticket is no longer transferable", err)
		case errors.Is(err, service.ErrTransferLimitExceeded):
			h.respondError(w, r, http.StatusForbidden, "Ticket has reached its transfer limit", err)
		default:
			h.l.Errorf(r.Context(), "Failed to redeem transfer token: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to redeem transfer token", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, newTicketResponse(ticket))
}

// CancelTicket handles cancellation requests
func (h *HTTPHandler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "ticketID")
	if ticketID == "" {
		h.respondError(w, r, http.StatusBadRequest, "Ticket ID is required", nil)
		return
	}

	refund, err := h.cancels.Cancel(r.Context(), ticketID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			h.respondError(w, r, http.StatusNotFound, "Ticket not found", err)
		case errors.Is(err, service.ErrNotCancellable):
			h.respondError(w, r, http.StatusForbidden, "Ticket can no longer be cancelled", err)
		default:
			h.l.Errorf(r.Context(), "Failed to cancel ticket: %v", err)
			h.respondError(w, r, http.StatusInternalServerError, "Failed to cancel ticket", err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, refund)
}

func (h *HTTPHandler) respondTicketError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrTicketNotFound):
		h.respondError(w, r, http.StatusNotFound, "Ticket not found", err)
	default:
		h.l.Errorf(r.Context(), "%s: %v", fallback, err)
		h.respondError(w, r, http.StatusInternalServerError, fallback, err)
	}
}
