package services

import (
	"strings"

	"github.com/cOsMiCTr/famhub-backend/pkg/database"
	"github.com/cOsMiCTr/famhub-backend/pkg/models"
)

// IdentityResolver maps an external person's email to a registered
// account. Resolution is always live: nothing caches the answer, so a
// person "becomes invitable" the moment a matching account registers.
type IdentityResolver struct {
	db database.DatabaseInterface
}

func NewIdentityResolver(db database.DatabaseInterface) *IdentityResolver {
	return &IdentityResolver{db: db}
}

// Resolve returns the registered user whose email matches the person's,
// ignoring case and surrounding whitespace. (nil, nil) means the person
// has no email or no account matches; an error means the lookup failed
// and the caller must not treat it as "no match".
func (r *IdentityResolver) Resolve(person *models.ExternalPerson) (*models.User, error) {
	email := strings.TrimSpace(person.Email)
	if email == "" {
		return nil, nil
	}
	return r.db.FindUserByEmailFold(strings.ToLower(email))
}
