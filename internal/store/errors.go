package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateCode is returned when the documents.code unique constraint rejects a write.
var ErrDuplicateCode = errors.New("duplicate document code")

// ErrUsernameTaken is returned when the users.username unique constraint rejects a write.
var ErrUsernameTaken = errors.New("username already exists")

// ErrNotDraft is returned when a guarded write targets a document that is no longer a draft.
var ErrNotDraft = errors.New("document is not a draft")
