package credentials

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost used when none is configured. The work factor
// matters mostly for passwords; a 4-8 digit PIN space is too small for any hash
// to defend on its own, so PIN guessing is throttled by the chat lock ledger
// and the hash only keeps the stored value non-reversible.
const DefaultCost = 12

var pinRegex = regexp.MustCompile(`^\d{4,8}$`)

// Hasher wraps one-way, salted hashing for passwords and PINs.
type Hasher struct {
	cost int
}

type Option func(*Hasher)

// WithCost overrides the bcrypt cost. Values outside bcrypt's supported range
// fall back to DefaultCost.
func WithCost(cost int) Option {
	return func(h *Hasher) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			h.cost = cost
		}
	}
}

// New creates a Hasher with the default cost unless overridden.
func New(opts ...Option) *Hasher {
	h := &Hasher{cost: DefaultCost}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HashPassword hashes a plaintext password with bcrypt.
func (h *Hasher) HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptySecretValue
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", errors.Join(ErrFailedToHash, err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
func (h *Hasher) VerifyPassword(plain, hash string) bool {
	if plain == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashPin validates the PIN format and hashes it with bcrypt. The PIN is
// trimmed first so a copy-pasted value with surrounding whitespace still works.
func (h *Hasher) HashPin(pin string) (string, error) {
	pin = strings.TrimSpace(pin)
	if err := ValidatePinFormat(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", errors.Join(ErrFailedToHash, err)
	}
	return string(hash), nil
}

// VerifyPin reports whether pin matches the stored bcrypt hash.
func (h *Hasher) VerifyPin(pin, hash string) bool {
	pin = strings.TrimSpace(pin)
	if pin == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}

// ValidatePinFormat enforces the 4-8 ASCII digit PIN shape. It runs before any
// hash is computed so malformed input never reaches bcrypt.
func ValidatePinFormat(pin string) error {
	if !pinRegex.MatchString(pin) {
		return ErrInvalidPinFormat
	}
	return nil
}
