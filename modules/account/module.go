package account

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/securenest/authkit/pkg/auth"
	"github.com/securenest/authkit/pkg/chatlock"
	"github.com/securenest/authkit/pkg/logger"
)

// Module bundles the account HTTP surface: signup, login, password and PIN
// recovery, backup codes, account deletion and chat-lock management. It is
// mounted into a host router and owns no transport concerns beyond JSON.
type Module struct {
	auth  *auth.Service
	locks *chatlock.Ledger
	log   *slog.Logger
}

type Option func(*Module)

func WithLogger(log *slog.Logger) Option {
	return func(m *Module) {
		if log != nil {
			m.log = log
		}
	}
}

// New creates the account module. The chat-lock ledger is optional; when nil
// the chat-lock routes are not mounted.
func New(authSvc *auth.Service, locks *chatlock.Ledger, opts ...Option) (*Module, error) {
	if authSvc == nil {
		return nil, ErrAuthRequired
	}

	m := &Module{
		auth:  authSvc,
		locks: locks,
		log:   logger.NewDiscard(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Router builds the module's route tree.
//
// Example:
//
//	accountModule, _ := account.New(authSvc, ledger)
//	r := chi.NewRouter()
//	r.Mount("/account", accountModule.Router())
func (m *Module) Router() http.Handler {
	r := chi.NewRouter()

	r.Route("/signup/otp", func(r chi.Router) {
		r.Post("/send", m.signupSend)
		r.Post("/verify", m.signupVerify)
		r.Post("/resend", m.signupResend)
	})

	r.Post("/login", m.login)
	r.Route("/login/otp", func(r chi.Router) {
		r.Post("/send", m.loginOTPSend)
		r.Post("/verify", m.loginOTPVerify)
	})

	r.Route("/recovery", func(r chi.Router) {
		r.Post("/request", m.recoveryRequest)
		r.Post("/reset", m.recoveryReset)
		r.Post("/backup", m.recoveryBackup)
	})

	r.Group(func(r chi.Router) {
		r.Use(m.requireSession)

		r.Route("/pin", func(r chi.Router) {
			r.Get("/status", m.pinStatus)
			r.Post("/set", m.pinSet)
			r.Post("/change", m.pinChange)
			r.Route("/recovery", func(r chi.Router) {
				r.Post("/start", m.pinRecoveryStart)
				r.Post("/verify", m.pinRecoveryVerify)
				r.Post("/complete", m.pinRecoveryComplete)
			})
		})

		r.Get("/backup-codes", m.backupCodesList)
		r.Post("/backup-codes", m.backupCodesGenerate)

		r.Route("/deletion", func(r chi.Router) {
			r.Post("/request", m.deletionRequest)
			r.Post("/confirm", m.deletionConfirm)
		})

		if m.locks != nil {
			r.Route("/chatlock", func(r chi.Router) {
				r.Get("/", m.chatlockList)
				r.Route("/{peerID}", func(r chi.Router) {
					r.Get("/", m.chatlockStatus)
					r.Post("/verify", m.chatlockVerify)
					r.Post("/lock", m.chatlockLock)
					r.Post("/unlock", m.chatlockUnlock)
				})
			})
		}
	})

	return r
}
