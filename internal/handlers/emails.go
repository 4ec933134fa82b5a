package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/petalmail/apiserver/internal/events"
	"github.com/petalmail/apiserver/internal/services"
	"github.com/petalmail/apiserver/internal/store"
	"go.uber.org/zap"
)

// EmailHandler provides the mailbox endpoints. All of them expect
// RequireAuth to have run.
type EmailHandler struct {
	emailService *services.EmailService
	events       events.Emitter
	logger       *zap.Logger
}

// NewEmailHandler constructs an EmailHandler with the provided dependencies.
func NewEmailHandler(emailService *services.EmailService, emitter events.Emitter, logger *zap.Logger) *EmailHandler {
	return &EmailHandler{
		emailService: emailService,
		events:       emitter,
		logger:       logger,
	}
}

// EmailRouter registers mailbox routes on the given router.
func EmailRouter(r chi.Router, handler *EmailHandler) {
	r.Get("/emails", handler.ListEmails)
	r.Get("/view/emails/{id}", handler.ViewEmail)
	// Older clients address a message as /view/emails<id>.
	r.Get("/view/emails{id}", handler.ViewEmail)
	r.Put("/write/emails", handler.SendEmail)
	r.Delete("/delete/emails/{id}", handler.DeleteEmail)
}

// ListEmails returns the caller's inbox.
func (h *EmailHandler) ListEmails(w http.ResponseWriter, r *http.Request) {
	identity, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authorization")
		return
	}

	emails, err := h.emailService.Inbox(r.Context(), identity.Email)
	if err != nil {
		h.logger.Error("list emails", zap.Int64("user_id", identity.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error fetching emails")
		return
	}

	writeData(w, http.StatusOK, emails)
}

// ViewEmail returns a message the caller sent or received, or an empty list.
func (h *EmailHandler) ViewEmail(w http.ResponseWriter, r *http.Request) {
	identity, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authorization")
		return
	}

	id, err := parseEmailID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	emails, err := h.emailService.View(r.Context(), id, identity.Email)
	if err != nil {
		h.logger.Error("view email", zap.Int64("email_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error fetching emails")
		return
	}

	writeData(w, http.StatusOK, emails)
}

// SendEmail stores a message from the caller to the requested recipient.
func (h *EmailHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	identity, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authorization")
		return
	}

	var req SendEmailRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Recipient = strings.TrimSpace(req.Recipient)
	if req.Recipient == "" {
		writeError(w, http.StatusBadRequest, "missing recipient")
		return
	}

	email, err := h.emailService.Send(r.Context(), identity.Email, req.Recipient, req.Subject, req.Body)
	if err != nil {
		h.logger.Error("send email", zap.Int64("user_id", identity.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error sending email")
		return
	}

	h.events.Emit(r.Context(), events.EmailSent, map[string]any{
		"id":        email.ID,
		"sender":    email.Sender,
		"recipient": email.Recipient,
	})
	writeData(w, http.StatusCreated, email)
}

// DeleteEmail removes a message from the caller's inbox.
func (h *EmailHandler) DeleteEmail(w http.ResponseWriter, r *http.Request) {
	identity, err := IdentityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid authorization")
		return
	}

	id, err := parseEmailID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	affected, err := h.emailService.Delete(r.Context(), id, identity.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Email not found")
			return
		}
		h.logger.Error("delete email", zap.Int64("email_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error deleting emails")
		return
	}

	h.events.Emit(r.Context(), events.EmailDeleted, map[string]any{
		"id":        id,
		"recipient": identity.Email,
	})
	writeData(w, http.StatusOK, DeleteResult{AffectedRows: affected})
}

type SendEmailRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

// DeleteResult reports how many rows a delete removed.
type DeleteResult struct {
	AffectedRows int64 `json:"affectedRows"`
}
