// Package totp implements RFC 6238 time-based one-time passwords and the
// related machinery this application needs around them: secret key creation,
// otpauth URI construction for authenticator apps, HOTP/TOTP code calculation
// with a caller-chosen tolerance window, AES-256-GCM helpers for persisting
// durable secrets, and single-use backup codes.
//
// The package is self-contained on purpose. Codes here are delivered over
// email as well as read from authenticator apps, so verification exposes the
// step window as a parameter instead of hard-coding one: signup and login use
// a narrow window, recovery flows a wider one. The absolute lifetime of a
// code is bounded separately by the challenge store, not by this package.
//
// Backup codes are not TOTP at all but live here because they share the
// recovery story: 64-bit random codes, stored as SHA-256 hashes and compared
// in constant time.
package totp
