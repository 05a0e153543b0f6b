// Package auth orchestrates the account lifecycle of the chat service:
// email-verified signup, password and optional OTP login, password reset,
// chat lock PIN management and recovery, backup codes and confirmed account
// deletion.
//
// Every code-gated flow is built on the challenge package: the service
// issues a purpose-scoped challenge, emails the code, and performs the
// flow's side effect before consuming the challenge, so a failed side effect
// always leaves the code retryable. Signup parks the whole registration
// (with the password already hashed) inside the challenge payload, meaning
// no account record exists until the email is proven and any instance can
// serve the verification request.
//
// The service deliberately exposes narrow seams - UserStore, EmailSender,
// MediaCleaner - and implements chatlock.PinVerifier itself so the chat lock
// ledger can check PINs without reaching into user storage.
package auth
