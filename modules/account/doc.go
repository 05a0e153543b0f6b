// Package account exposes the authentication and recovery flows over a
// mountable chi router: signup with email proof, login with optional TOTP,
// password and PIN recovery, backup codes, account deletion, and per-peer
// chat locks.
//
// All requests and responses are JSON wrapped in a uniform envelope:
//
//	{"success": true,  "data": {...}}
//	{"success": false, "error": {"code": "...", "message": "...", "cooldown": 20}}
//
// Routes under the authenticated group require a bearer session token issued
// by the signup/login endpoints. Responses never contain password hashes,
// PIN hashes, TOTP secrets or one-time codes.
package account
