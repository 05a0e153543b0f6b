package totp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
)

// GenerateBackupCodes creates cryptographically secure single-use codes for
// account recovery. Each code is a 16-character hexadecimal string (64 bits of
// entropy), enough to survive offline guessing unlike the 6-digit OTP space.
func GenerateBackupCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidBackupCodeCount
	}

	codes := make([]string, count)
	for i := 0; i < count; i++ {
		codeBytes := make([]byte, 8)
		if _, err := rand.Read(codeBytes); err != nil {
			return nil, errors.Join(ErrFailedToGenerateBackupCode, err)
		}
		codes[i] = fmt.Sprintf("%X", codeBytes)
	}
	return codes, nil
}

// HashBackupCode creates a SHA-256 hash for secure storage of backup codes.
func HashBackupCode(code string) string {
	hash := sha256.Sum256([]byte(code))
	return hex.EncodeToString(hash[:])
}

// VerifyBackupCode performs constant-time comparison to prevent timing attacks.
// Comparison time must not reveal information about where differences occur.
func VerifyBackupCode(code, hashedCode string) bool {
	computedHash := HashBackupCode(code)

	return subtle.ConstantTimeCompare(
		[]byte(computedHash),
		[]byte(hashedCode),
	) == 1
}
