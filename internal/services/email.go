package services

import (
	"context"

	"github.com/petalmail/apiserver/types"
)

// EmailRepository defines persistence operations for email messages.
type EmailRepository interface {
	ListByRecipient(ctx context.Context, recipient string) ([]types.EmailMessage, error)
	GetVisible(ctx context.Context, id int64, participant string) ([]types.EmailMessage, error)
	Create(ctx context.Context, email types.EmailMessage) (types.EmailMessage, error)
	DeleteReceived(ctx context.Context, id int64, recipient string) (int64, error)
}

// EmailService encapsulates mailbox use-cases. The caller's address is
// always the one taken from the verified token.
type EmailService struct {
	repo EmailRepository
}

func NewEmailService(repo EmailRepository) *EmailService {
	return &EmailService{repo: repo}
}

// Inbox lists the messages addressed to caller.
func (s *EmailService) Inbox(ctx context.Context, caller string) ([]types.EmailMessage, error) {
	return s.repo.ListByRecipient(ctx, caller)
}

// View returns the message with id if caller sent or received it.
func (s *EmailService) View(ctx context.Context, id int64, caller string) ([]types.EmailMessage, error) {
	return s.repo.GetVisible(ctx, id, caller)
}

// Send stores a message from caller to recipient.
func (s *EmailService) Send(ctx context.Context, caller, recipient, subject, body string) (types.EmailMessage, error) {
	return s.repo.Create(ctx, types.EmailMessage{
		Sender:    caller,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
}

// Delete removes a message from caller's inbox.
func (s *EmailService) Delete(ctx context.Context, id int64, caller string) (int64, error) {
	return s.repo.DeleteReceived(ctx, id, caller)
}
