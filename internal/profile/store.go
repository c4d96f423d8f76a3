// Package profile stores user financial profiles and renders them as prose
// for inclusion in outbound messages.
package profile

import (
	"context"
	"errors"
	"strings"

	"github.com/agentoven/advisor-desk/pkg/models"
)

// Store persists profiles keyed by user id.
type Store interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	// List returns summaries, most recently updated first.
	List(ctx context.Context) ([]models.ProfileSummary, error)
	// Save inserts or replaces a profile. CreatedAt is preserved on update.
	Save(ctx context.Context, p *models.Profile) (*models.Profile, error)
	Delete(ctx context.Context, userID string) error
	Close() error
}

// ErrNotFound is returned when a profile does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// IsNotFound reports whether err is an ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}

// ErrInvalidProfile is returned by Save for a profile without a user id.
var ErrInvalidProfile = errors.New("profile: user_id is required")

func validate(p *models.Profile) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return ErrInvalidProfile
	}
	return nil
}

func notFound(userID string) error {
	return &ErrNotFound{Entity: "profile", Key: userID}
}
