package email

import (
	"fmt"
	"time"

	"github.com/securenest/authkit/pkg/challenge"
)

// purposeCopy is the subject line and lead sentence for each code-bearing
// message.
type purposeCopy struct {
	subject string
	lead    string
	tag     string
}

func copyFor(purpose challenge.Purpose, appName string) purposeCopy {
	switch purpose {
	case challenge.PurposeSignup:
		return purposeCopy{
			subject: fmt.Sprintf("Verify your %s account", appName),
			lead:    "Use this code to finish creating your account.",
			tag:     "signup-otp",
		}
	case challenge.PurposeLogin:
		return purposeCopy{
			subject: fmt.Sprintf("Your %s sign-in code", appName),
			lead:    "Use this code to finish signing in.",
			tag:     "login-otp",
		}
	case challenge.PurposePasswordReset:
		return purposeCopy{
			subject: fmt.Sprintf("Reset your %s password", appName),
			lead:    "Use this code to reset your password. If you did not request a reset, you can ignore this email.",
			tag:     "password-reset-otp",
		}
	case challenge.PurposePinRecovery:
		return purposeCopy{
			subject: fmt.Sprintf("Recover your %s chat lock PIN", appName),
			lead:    "Use this code to set a new chat lock PIN. If you did not request this, change your password.",
			tag:     "pin-recovery-otp",
		}
	case challenge.PurposeAccountDeletion:
		return purposeCopy{
			subject: fmt.Sprintf("Confirm deleting your %s account", appName),
			lead:    "Use this code to confirm deleting your account. This cannot be undone.",
			tag:     "account-deletion-otp",
		}
	default:
		return purposeCopy{
			subject: fmt.Sprintf("Your %s verification code", appName),
			lead:    "Use this code to continue.",
			tag:     "otp",
		}
	}
}

// BuildOTPEmail renders the code-bearing message for a purpose. The body
// states the expiry so users know a stale code is not worth retyping.
func BuildOTPEmail(appName, sendTo string, purpose challenge.Purpose, code string, ttl time.Duration) SendEmailParams {
	c := copyFor(purpose, appName)
	minutes := int(ttl / time.Minute)

	body := fmt.Sprintf(`<html><body style="font-family: sans-serif; color: #1a1a1a;">
<h2>%s</h2>
<p>%s</p>
<p style="font-size: 32px; font-weight: bold; letter-spacing: 6px;">%s</p>
<p>The code expires in %d minutes and can be used once.</p>
<p style="color: #6b6b6b; font-size: 12px;">If you did not request this code, no action is needed.</p>
</body></html>`, appName, c.lead, code, minutes)

	return SendEmailParams{
		SendTo:   sendTo,
		Subject:  c.subject,
		BodyHTML: body,
		Tag:      c.tag,
	}
}

// BuildFarewellEmail renders the goodbye notice sent after an account is
// deleted. It is delivered best effort; deletion never fails on it.
func BuildFarewellEmail(appName, sendTo, username string) SendEmailParams {
	name := username
	if name == "" {
		name = "there"
	}

	body := fmt.Sprintf(`<html><body style="font-family: sans-serif; color: #1a1a1a;">
<h2>Goodbye from %s</h2>
<p>Hi %s,</p>
<p>Your account and its data have been deleted. This address will receive no further email from us.</p>
<p>If this was not you, contact support right away - the deletion was confirmed from your email address.</p>
</body></html>`, appName, name)

	return SendEmailParams{
		SendTo:   sendTo,
		Subject:  fmt.Sprintf("Your %s account has been deleted", appName),
		BodyHTML: body,
		Tag:      "account-farewell",
	}
}
