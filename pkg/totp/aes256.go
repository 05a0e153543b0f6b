package totp

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

const (
	AESKeySize = 32 // Required key size for AES-256 (256 bits / 8 = 32 bytes)
)

// EncryptSecret encrypts a TOTP secret with AES-256-GCM for at-rest storage.
// Returns the ciphertext as a base64-encoded string with the nonce prepended.
func EncryptSecret(plainText string, key []byte) (string, error) {
	if len(key) != AESKeySize {
		return "", errors.Join(ErrFailedToEncryptSecret, ErrInvalidEncryptionKeyLength)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrFailedToEncryptSecret, err)
	}

	cipherText := aesGCM.Seal(nonce, nonce, []byte(plainText), nil)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

// DecryptSecret reverses EncryptSecret.
func DecryptSecret(cipherTextBase64 string, key []byte) (string, error) {
	if len(key) != AESKeySize {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrInvalidEncryptionKeyLength)
	}

	cipherText, err := base64.StdEncoding.DecodeString(cipherTextBase64)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(cipherText) < nonceSize {
		return "", errors.Join(ErrFailedToDecryptSecret, ErrInvalidCipherTooShort)
	}
	nonce, cipherText := cipherText[:nonceSize], cipherText[nonceSize:]

	plainText, err := aesGCM.Open(nil, nonce, cipherText, nil)
	if err != nil {
		return "", errors.Join(ErrFailedToDecryptSecret, err)
	}

	return string(plainText), nil
}

// GenerateEncryptionKey creates a new random 32-byte key suitable for AES-256.
func GenerateEncryptionKey() ([]byte, error) {
	key := make([]byte, AESKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.Join(ErrFailedToGenerateEncryptionKey, err)
	}
	return key, nil
}

// GenerateEncodedEncryptionKey returns a fresh AES-256 key as a base64 string,
// the form expected in the TOTP_ENCRYPTION_KEY environment variable.
func GenerateEncodedEncryptionKey() (string, error) {
	key, err := GenerateEncryptionKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

// ParseEncryptionKey decodes a base64-encoded AES-256 key.
func ParseEncryptionKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrEncryptionKeyNotSet)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, err)
	}

	if len(key) != AESKeySize {
		return nil, errors.Join(ErrFailedToLoadEncryptionKey, ErrInvalidEncryptionKeyLength)
	}

	return key, nil
}
