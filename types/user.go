package types

// User represents a registered mailbox owner.
type User struct {
	// ID is the unique identifier generated by the store.
	ID int64 `json:"id" db:"id"`

	// Username is the display name supplied at registration.
	Username string `json:"username" db:"username"`

	// Email is the user's address. It is unique across users and is the
	// value matched against email senders and recipients.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password"`
}
