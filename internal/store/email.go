package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/petalmail/apiserver/internal/db"
	"github.com/petalmail/apiserver/types"
)

// EmailRepository handles persistence for email messages.
type EmailRepository struct{}

func NewEmailRepository() *EmailRepository {
	return &EmailRepository{}
}

// ListByRecipient returns the mailbox of recipient in insertion order.
func (r *EmailRepository) ListByRecipient(ctx context.Context, recipient string) ([]types.EmailMessage, error) {
	conn, err := db.ConnFromContext(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT id, sender, recipient, subject, body, time_stamp
		FROM emails
		WHERE recipient = $1
		ORDER BY id`
	rows, err := conn.QueryContext(ctx, query, recipient)
	if err != nil {
		return nil, fmt.Errorf("select emails by recipient: %w", err)
	}
	defer rows.Close()

	return scanEmails(rows)
}

// GetVisible returns the message with the given id when participant is
// its sender or recipient. The result is empty otherwise.
func (r *EmailRepository) GetVisible(ctx context.Context, id int64, participant string) ([]types.EmailMessage, error) {
	conn, err := db.ConnFromContext(ctx)
	if err != nil {
		return nil, err
	}

	const query = `
		SELECT id, sender, recipient, subject, body, time_stamp
		FROM emails
		WHERE id = $1 AND (recipient = $2 OR sender = $2)`
	rows, err := conn.QueryContext(ctx, query, id, participant)
	if err != nil {
		return nil, fmt.Errorf("select email: %w", err)
	}
	defer rows.Close()

	return scanEmails(rows)
}

// Create inserts email; the store assigns its id and timestamp.
func (r *EmailRepository) Create(ctx context.Context, email types.EmailMessage) (types.EmailMessage, error) {
	conn, err := db.ConnFromContext(ctx)
	if err != nil {
		return types.EmailMessage{}, err
	}

	const query = `
		INSERT INTO emails (sender, recipient, subject, body, time_stamp)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, time_stamp`
	if err := conn.QueryRowContext(
		ctx,
		query,
		email.Sender,
		email.Recipient,
		email.Subject,
		email.Body,
	).Scan(&email.ID, &email.TimeStamp); err != nil {
		return types.EmailMessage{}, fmt.Errorf("insert email: %w", err)
	}
	return email, nil
}

// DeleteReceived removes the message with the given id from recipient's
// mailbox and returns ErrNotFound when nothing matched.
func (r *EmailRepository) DeleteReceived(ctx context.Context, id int64, recipient string) (int64, error) {
	conn, err := db.ConnFromContext(ctx)
	if err != nil {
		return 0, err
	}

	const query = `DELETE FROM emails WHERE id = $1 AND recipient = $2`
	result, err := conn.ExecContext(ctx, query, id, recipient)
	if err != nil {
		return 0, fmt.Errorf("delete email: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete email: %w", err)
	}
	if affected == 0 {
		return 0, ErrNotFound
	}
	return affected, nil
}

func scanEmails(rows *sql.Rows) ([]types.EmailMessage, error) {
	emails := make([]types.EmailMessage, 0)
	for rows.Next() {
		var email types.EmailMessage
		if err := rows.Scan(
			&email.ID,
			&email.Sender,
			&email.Recipient,
			&email.Subject,
			&email.Body,
			&email.TimeStamp,
		); err != nil {
			return nil, fmt.Errorf("scan email: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emails: %w", err)
	}

	return emails, nil
}
