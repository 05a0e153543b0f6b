package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BackupCode is one single-use recovery code. Only the SHA-256 hash is
// stored; the plaintext exists only in the response that generated it.
type BackupCode struct {
	CodeHash string     `bson:"code_hash" json:"-"`
	Used     bool       `bson:"used" json:"used"`
	UsedAt   *time.Time `bson:"used_at,omitempty" json:"used_at,omitempty"`
}

// User is the account record. Secrets (password hash, PIN hash, TOTP secret,
// backup code hashes) never serialize to JSON.
type User struct {
	ID              uuid.UUID    `bson:"_id" json:"id"`
	Email           string       `bson:"email" json:"email"`
	Username        string       `bson:"username" json:"username"`
	FullName        string       `bson:"full_name,omitempty" json:"full_name,omitempty"`
	AvatarURL       string       `bson:"avatar_url,omitempty" json:"avatar_url,omitempty"`
	PasswordHash    string       `bson:"password_hash" json:"-"`
	PinHash         string       `bson:"pin_hash,omitempty" json:"-"`
	TOTPSecret      string       `bson:"totp_secret,omitempty" json:"-"`
	BackupCodes     []BackupCode `bson:"backup_codes,omitempty" json:"-"`
	IsEmailVerified bool         `bson:"is_email_verified" json:"is_email_verified"`
	LastOTPSentAt   *time.Time   `bson:"last_otp_sent_at,omitempty" json:"-"`
	CreatedAt       time.Time    `bson:"created_at" json:"created_at"`
}

// HasPin reports whether the user configured a chat lock PIN.
func (u *User) HasPin() bool { return u.PinHash != "" }

// UnusedBackupCodes counts the backup codes still available.
func (u *User) UnusedBackupCodes() int {
	var n int
	for _, c := range u.BackupCodes {
		if !c.Used {
			n++
		}
	}
	return n
}

// UserStore persists account records. Lookups return ErrUserNotFound for
// missing users; Create returns ErrEmailTaken or ErrUsernameTaken on unique
// constraint violations.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	ByID(ctx context.Context, id uuid.UUID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	ByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MediaCleaner removes user-owned media (avatars, uploads) after account
// deletion. Cleanup is best effort; deletion never fails on it.
type MediaCleaner interface {
	RemoveUserMedia(ctx context.Context, userID uuid.UUID) error
}
