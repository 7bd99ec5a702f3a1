// Package bootstrap implements the tenant-creation sequence.
//
// Creating a tenant has a circular dependency: the read policy for a tenant
// row requires the caller to already hold a membership pointing at it, but the
// membership can only be written after the tenant row exists. The sequence
// breaks the cycle by pre-generating the tenant id, inserting the row blind
// (write-side policy only), then pointing the caller's membership at the new
// id. Only after the membership write does the read-side policy admit the row.
//
// The intermediate state is real: between the insert and the membership write
// the tenant row exists but is unreadable by anyone. A failure in that window
// leaves an orphaned row behind; the caller retries from the top with a fresh
// id and the orphan is abandoned, never reused.
package bootstrap

import (
	"errors"

	"graph-service/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// State tracks the sequence through its three states.
type State int

const (
	// StateNoTenant: the caller holds no membership and no row was written.
	StateNoTenant State = iota
	// StateOrphaned: the tenant row exists but no membership points at it
	// yet, so the row is unreadable by anyone.
	StateOrphaned
	// StateActive: the caller's membership points at the tenant; the row is
	// readable through the ordinary authorization boundary.
	StateActive
)

// ErrAlreadyMember is returned when the caller already holds a membership.
// One caller identity has at most one active membership at any time.
var ErrAlreadyMember = errors.New("caller already belongs to a workspace")

// ErrOutOfOrder is returned when a step is driven outside the documented
// transition order.
var ErrOutOfOrder = errors.New("bootstrap step out of order")

// Sequence drives one tenant creation for one caller. The two writes are
// issued as separate sequential statements, deliberately not wrapped in a
// transaction: an orphaned row after a failed membership write is a defined,
// retryable outcome, and tests hold the sequence in the orphaned state on
// purpose.
type Sequence struct {
	db       *gorm.DB
	userID   string
	TenantID string
	state    State
}

// Begin checks the one-membership-per-caller invariant and pre-generates the
// tenant id so it is known before any read is attempted.
func Begin(db *gorm.DB, userID string) (*Sequence, error) {
	var profile model.Profile
	err := db.Where("id = ?", userID).First(&profile).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil && profile.TenantID != nil {
		return nil, ErrAlreadyMember
	}

	return &Sequence{
		db:       db,
		userID:   userID,
		TenantID: uuid.NewString(),
		state:    StateNoTenant,
	}, nil
}

// State reports the current state of the sequence.
func (s *Sequence) State() State {
	return s.state
}

// InsertTenant writes the tenant row under the pre-generated id. The insert
// is permitted unconditionally for any authenticated caller without a
// membership; this is a write-side policy, distinct from the read-side one.
// On success the sequence is in StateOrphaned.
func (s *Sequence) InsertTenant(name string, settings datatypes.JSONMap) error {
	if s.state != StateNoTenant {
		return ErrOutOfOrder
	}

	tenant := model.Tenant{
		ID:       s.TenantID,
		Name:     name,
		Settings: settings,
	}
	if err := s.db.Create(&tenant).Error; err != nil {
		return err
	}

	s.state = StateOrphaned
	return nil
}

// ActivateMembership points the caller's profile at the new tenant with the
// admin role, moving the sequence to StateActive. If this step fails the
// tenant row stays orphaned; the caller re-attempts creation from Begin and
// the orphan is abandoned.
func (s *Sequence) ActivateMembership() error {
	if s.state != StateOrphaned {
		return ErrOutOfOrder
	}

	role := model.RoleAdmin
	result := s.db.Model(&model.Profile{}).
		Where("id = ?", s.userID).
		Updates(map[string]interface{}{"tenant_id": s.TenantID, "role": role})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	s.state = StateActive
	return nil
}

// Fetch reads the tenant row back through the ordinary read path. Valid only
// in StateActive, after the membership write has made the row readable.
func (s *Sequence) Fetch() (*model.Tenant, error) {
	if s.state != StateActive {
		return nil, ErrOutOfOrder
	}

	var tenant model.Tenant
	err := s.db.Scopes(memberTenant(s.db, s.userID)).
		Where("id = ?", s.TenantID).
		First(&tenant).Error
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

// memberTenant is the read-side predicate: a tenant row is visible only when
// the caller's membership points at it.
func memberTenant(db *gorm.DB, userID string) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		sub := db.Session(&gorm.Session{NewDB: true}).
			Model(&model.Profile{}).
			Select("tenant_id").
			Where("id = ? AND tenant_id IS NOT NULL", userID)
		return tx.Where("id IN (?)", sub)
	}
}
