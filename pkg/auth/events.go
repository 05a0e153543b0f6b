package auth

import "time"

// EventType identifies an account lifecycle transition.
type EventType string

const (
	EventUserRegistered    EventType = "user_registered"
	EventUserLoggedIn      EventType = "user_logged_in"
	EventPasswordReset     EventType = "password_reset"
	EventPinSet            EventType = "pin_set"
	EventPinChanged        EventType = "pin_changed"
	EventPinRecovered      EventType = "pin_recovered"
	EventBackupCodesIssued EventType = "backup_codes_issued"
	EventBackupCodeUsed    EventType = "backup_code_used"
	EventAccountDeleted    EventType = "account_deleted"
)

// Event is published on lifecycle transitions for audit trails and connected
// clients. It never carries codes, secrets or hashes.
type Event struct {
	Type   EventType `json:"type"`
	UserID string    `json:"user_id,omitempty"`
	Email  string    `json:"email,omitempty"`
	At     time.Time `json:"at"`
}
