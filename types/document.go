package types

import "time"

// Status is the lifecycle state of a document.
type Status string

// Supported statuses. The only transition is StatusDraft -> StatusSent.
const (
	// StatusDraft marks a document that may still be edited or deleted.
	StatusDraft Status = "draft"

	// StatusSent marks a document that has been dispatched. It is terminal.
	StatusSent Status = "sent"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusSent
}

// Document is a business document moving through the draft -> sent lifecycle.
type Document struct {
	// ID is the internal identifier of the document.
	ID int `json:"id" db:"id"`

	// Code is the user-supplied business identifier, unique across documents.
	Code int64 `json:"code" db:"code"`

	// Subject is the short title of the document.
	Subject string `json:"subject" db:"subject"`

	// Sender names the originator.
	Sender string `json:"sender" db:"sender"`

	// Receiver names the addressee. It cannot change after creation.
	Receiver string `json:"receiver" db:"receiver"`

	// Message is the optional body.
	Message string `json:"message" db:"message"`

	// Status is the current lifecycle state.
	Status Status `json:"status" db:"status"`

	// CreatedAt is the timestamp at which the document was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent mutation.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DocumentPatch carries a partial update. Nil fields keep their stored value.
// Receiver is absent: it is immutable after creation.
type DocumentPatch struct {
	Code    *int64  `json:"code,omitempty"`
	Subject *string `json:"subject,omitempty"`
	Sender  *string `json:"sender,omitempty"`
	Message *string `json:"message,omitempty"`
}

// DocumentFilter narrows a document listing.
type DocumentFilter struct {
	// Status restricts results to a single status when non-empty.
	Status Status

	Offset int
	Limit  int
}
