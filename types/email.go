package types

import "time"

// EmailMessage is a single message stored in the emails table.
type EmailMessage struct {
	ID        int64     `json:"id" db:"id"`
	Sender    string    `json:"sender" db:"sender"`
	Recipient string    `json:"recipient" db:"recipient"`
	Subject   string    `json:"subject" db:"subject"`
	Body      string    `json:"body" db:"body"`
	TimeStamp time.Time `json:"timeStamp" db:"time_stamp"`
}
