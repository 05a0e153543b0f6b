// Command totpqr generates a fresh TOTP secret, prints the otpauth:// URI and
// writes a provisioning QR code PNG that can be scanned with an authenticator
// app. Useful for enrolling test accounts without going through the email flow.
package main

import (
	"flag"
	"fmt"
	"log"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/securenest/authkit/pkg/totp"
)

func main() {
	account := flag.String("account", "user@example.com", "account name shown in the authenticator app")
	issuer := flag.String("issuer", "SecureNest", "issuer shown in the authenticator app")
	out := flag.String("out", "totp.png", "output PNG file for the QR code")
	flag.Parse()

	secret, err := totp.GenerateSecretKey()
	if err != nil {
		log.Fatalf("Failed to generate secret key: %v", err)
	}

	uri, err := totp.GetTOTPURI(totp.TOTPParams{
		Secret:      secret,
		AccountName: *account,
		Issuer:      *issuer,
	})
	if err != nil {
		log.Fatalf("Failed to build otpauth URI: %v", err)
	}

	if err := qrcode.WriteFile(uri, qrcode.Medium, 256, *out); err != nil {
		log.Fatalf("Failed to write QR code: %v", err)
	}

	fmt.Printf("Secret: %s\nURI:    %s\nQR:     %s\n", secret, uri, *out)
}
