package entity

import (
	"strings"
	"time"
)

// RequiredPremiumDocuments are the document names a user must have uploaded
// before being promoted to premium.
var RequiredPremiumDocuments = []string{"id", "address", "bankaccount"}

// Document is an uploaded file reference kept on the user record
type Document struct {
	Name         string `json:"name"`
	ReferenceURL string `json:"referenceUrl"`
}

// User is the aggregate root for the users domain.
// Password holds a bcrypt hash and never leaves the service layer.
// Cart is a weak reference; the cart lifecycle lives elsewhere.
type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	BirthDate      *time.Time
	Password       string
	Role           Role
	Cart           string
	Documents      []Document
	LastConnection *time.Time
	DeletedAt      *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Active reports whether the user has not been soft-deleted.
func (u *User) Active() bool { return u.DeletedAt == nil }

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DocumentName derives the stored document name from an uploaded filename:
// lowercased, everything from the first dot on removed.
func DocumentName(filename string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(filename), ".")
	return strings.ToLower(name)
}

// MissingDocuments returns the required premium documents that docs does not
// cover, in RequiredPremiumDocuments order.
func MissingDocuments(docs []Document) []string {
	have := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		have[DocumentName(d.Name)] = struct{}{}
	}
	var missing []string
	for _, req := range RequiredPremiumDocuments {
		if _, ok := have[req]; !ok {
			missing = append(missing, req)
		}
	}
	return missing
}

// SameEmail compares two addresses case-insensitively.
func SameEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
