package application

import (
	"context"
	"time"
)

// Notifier delivers an email. Implementations may deliver asynchronously;
// a nil error means the email was accepted.
type Notifier interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// ResetTokens mints and redeems single-use password reset tokens.
type ResetTokens interface {
	Issue(ctx context.Context, email string) (token string, expiresAt time.Time, err error)
	Consume(ctx context.Context, token string) (email string, err error)
}

// UserIndexer mirrors user projections into a search index.
type UserIndexer interface {
	IndexUser(ctx context.Context, u UserBriefDTO) error
	RemoveUser(ctx context.Context, id string) error
}

// UploadedFile is a document already persisted by the storage layer.
type UploadedFile struct {
	OriginalName string
	StoredName   string
}
