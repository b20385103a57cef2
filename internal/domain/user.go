package domain

import (
	"time"

	"github.com/google/uuid"
)

const DefaultPhoto = "default.jpg"

type User struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Email                string     `db:"email" json:"email"`
	Photo                string     `db:"photo" json:"photo"`
	Role                 Role       `db:"role" json:"role"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	PasswordChangedAt    *time.Time `db:"password_changed_at" json:"-"`
	PasswordResetToken   *string    `db:"password_reset_token" json:"-"`
	PasswordResetExpires *time.Time `db:"password_reset_expires" json:"-"`
	Active               bool       `db:"active" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at issuedAt. Comparison is at whole-second resolution, the
// resolution session tokens carry.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

// HasPendingReset reports whether a reset token is stored and still live at now.
func (u *User) HasPendingReset(now time.Time) bool {
	if u.PasswordResetToken == nil || u.PasswordResetExpires == nil {
		return false
	}
	return u.PasswordResetExpires.After(now)
}

// NewUser carries the fields required to create an account. PasswordHash is
// already a digest; the store never sees plaintext.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

type ProfileUpdate struct {
	Name  *string
	Email *string
	Photo *string
}

func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Photo == nil
}
