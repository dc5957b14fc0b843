// Package profile is the per-user profile record: a flat document that
// onboarding screens merge fields into.
package profile

import (
	"context"
	"errors"
)

// Field names in the profile document.
const (
	FieldRole            = "role"
	FieldCreatedAt       = "createdAt"
	FieldProfileComplete = "profileComplete"
	FieldIsVerified      = "isVerified"
	FieldName            = "name"
	FieldAge             = "age"
	FieldGender          = "gender"
	FieldLocation        = "location"
	FieldUpdatedAt       = "updatedAt"
)

// ErrNotFound is returned by Get when no record exists for the user.
var ErrNotFound = errors.New("profile not found")

// Fields is a flat set of profile values.
type Fields map[string]any

// Store merges field sets into per-user records. Merge only touches the keys
// it is given; other keys already on the record are kept.
type Store interface {
	Merge(ctx context.Context, userID string, fields Fields) error
	Get(ctx context.Context, userID string) (Fields, error)
}
