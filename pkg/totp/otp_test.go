package totp_test

import (
	"testing"
	"time"

	"github.com/securenest/authkit/pkg/totp"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecretKey(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Regexp(t, totp.ValidateSecretKeyRegex, secret)

	// Fresh secrets must never repeat
	other, err := totp.GenerateSecretKey()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}

func TestGenerateTOTPWithTime_SameBucket(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	// Two instants inside the same 30-second bucket yield the same code
	base := time.Unix(1_700_000_010, 0) // bucket starts at 1_700_000_010 - (…%30)
	bucketStart := base.Truncate(30 * time.Second)
	codeA, err := totp.GenerateTOTPWithTime(secret, bucketStart.Add(1*time.Second))
	require.NoError(t, err)
	codeB, err := totp.GenerateTOTPWithTime(secret, bucketStart.Add(29*time.Second))
	require.NoError(t, err)
	assert.Equal(t, codeA, codeB)
	assert.Len(t, codeA, 6)

	// The adjacent bucket yields a different code (overwhelmingly likely)
	codeC, err := totp.GenerateTOTPWithTime(secret, bucketStart.Add(31*time.Second))
	require.NoError(t, err)
	assert.NotEqual(t, codeA, codeC)
}

func TestValidateTOTPWithTime_Window(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	now := time.Unix(1_700_000_000, 0)
	prev := now.Add(-30 * time.Second)

	codeFromPrevBucket, err := totp.GenerateTOTPWithTime(secret, prev)
	require.NoError(t, err)

	// With window 0 the adjacent bucket's code must fail
	ok, err := totp.ValidateTOTPWithTime(secret, codeFromPrevBucket, 0, now)
	require.NoError(t, err)
	assert.False(t, ok)

	// With window 1 the same code must pass
	ok, err = totp.ValidateTOTPWithTime(secret, codeFromPrevBucket, 1, now)
	require.NoError(t, err)
	assert.True(t, ok)

	// A code four steps back needs the wide recovery window
	old, err := totp.GenerateTOTPWithTime(secret, now.Add(-4*30*time.Second))
	require.NoError(t, err)
	ok, err = totp.ValidateTOTPWithTime(secret, old, 1, now)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = totp.ValidateTOTPWithTime(secret, old, 4, now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateTOTP_FailsClosed(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		otp    string
		hasErr bool
	}{
		{name: "empty code", secret: secret, otp: "", hasErr: false},
		{name: "short code", secret: secret, otp: "12345", hasErr: false},
		{name: "long code", secret: secret, otp: "1234567", hasErr: false},
		{name: "non-numeric code", secret: secret, otp: "12a456", hasErr: false},
		{name: "empty secret", secret: "", otp: "123456", hasErr: true},
		{name: "invalid secret", secret: "not base32!", otp: "123456", hasErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ok, err := totp.ValidateTOTP(tt.secret, tt.otp, 1)
			assert.False(t, ok)
			if tt.hasErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTOTP_LeadingZerosPreserved(t *testing.T) {
	t.Parallel()
	secret, err := totp.GenerateSecretKey()
	require.NoError(t, err)

	// Walk buckets until a code with a leading zero shows up, then make sure
	// verification only accepts the zero-padded form.
	base := time.Unix(1_600_000_000, 0)
	for i := 0; i < 5000; i++ {
		at := base.Add(time.Duration(i) * 30 * time.Second)
		code, err := totp.GenerateTOTPWithTime(secret, at)
		require.NoError(t, err)
		require.Len(t, code, 6)
		if code[0] != '0' {
			continue
		}

		ok, err := totp.ValidateTOTPWithTime(secret, code, 0, at)
		require.NoError(t, err)
		assert.True(t, ok)

		// The unpadded 5-digit form is malformed and must be rejected
		ok, err = totp.ValidateTOTPWithTime(secret, code[1:], 0, at)
		require.NoError(t, err)
		assert.False(t, ok)
		return
	}
	t.Fatal("no code with leading zero found in 5000 buckets")
}

func TestGetTOTPURI(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		params  totp.TOTPParams
		want    string
		wantErr bool
	}{
		{
			name: "basic URI",
			params: totp.TOTPParams{
				Secret:      "ABCDEFGHIJKLMNOP",
				AccountName: "alice@example.com",
				Issuer:      "SecureNest",
			},
			want: "otpauth://totp/SecureNest:alice@example.com?algorithm=SHA1&digits=6&issuer=SecureNest&period=30&secret=ABCDEFGHIJKLMNOP",
		},
		{
			name:    "missing secret",
			params:  totp.TOTPParams{AccountName: "alice@example.com", Issuer: "SecureNest"},
			wantErr: true,
		},
		{
			name:    "missing account",
			params:  totp.TOTPParams{Secret: "ABCDEFGHIJKLMNOP", Issuer: "SecureNest"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := totp.GetTOTPURI(tt.params)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
