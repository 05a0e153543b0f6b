// Package email provides the outbound mail surface: a provider-agnostic
// EmailSender interface, a Postmark implementation for production, a
// file-writing DevSender for local development, and builders for the
// verification-code and farewell messages the account flows send.
package email
