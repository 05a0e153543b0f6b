package account

import (
	"net/http"
	"time"

	"github.com/securenest/authkit/pkg/auth"
)

// userView is the public projection of an account. Password, PIN and TOTP
// material never appear in responses.
type userView struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	Username        string    `json:"username"`
	FullName        string    `json:"full_name,omitempty"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	IsEmailVerified bool      `json:"is_email_verified"`
	CreatedAt       time.Time `json:"created_at"`
}

func viewOf(u *auth.User) userView {
	return userView{
		ID:              u.ID.String(),
		Email:           u.Email,
		Username:        u.Username,
		FullName:        u.FullName,
		AvatarURL:       u.AvatarURL,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
	}
}

type sessionView struct {
	User  userView `json:"user"`
	Token string   `json:"token"`
}

type signupSendRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (m *Module) signupSend(w http.ResponseWriter, r *http.Request) {
	var req signupSendRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	masked, err := m.auth.SendSignupOTP(r.Context(), auth.SignupRequest{
		Email:    req.Email,
		Username: req.Username,
		FullName: req.FullName,
		Password: req.Password,
	})
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusAccepted, map[string]string{"masked_email": masked})
}

type otpRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

func (m *Module) signupVerify(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	user, token, err := m.auth.VerifySignupOTP(r.Context(), req.Email, req.OTP)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusCreated, sessionView{User: viewOf(user), Token: token})
}

func (m *Module) signupResend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	masked, err := m.auth.ResendSignupOTP(r.Context(), req.Email)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusAccepted, map[string]string{"masked_email": masked})
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (m *Module) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	user, token, err := m.auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, sessionView{User: viewOf(user), Token: token})
}

func (m *Module) loginOTPSend(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	masked, err := m.auth.SendLoginOTP(r.Context(), req.Identifier, req.Password)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusAccepted, map[string]string{"masked_email": masked})
}

func (m *Module) loginOTPVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		OTP        string `json:"otp"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	user, token, err := m.auth.VerifyLoginOTP(r.Context(), req.Identifier, req.OTP)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, sessionView{User: viewOf(user), Token: token})
}

func (m *Module) recoveryRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	masked, err := m.auth.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusAccepted, map[string]string{"masked_email": masked})
}

func (m *Module) recoveryReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		OTP             string `json:"otp"`
		NewPassword     string `json:"new_password"`
		ConfirmPassword string `json:"confirm_password"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.auth.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword, req.ConfirmPassword); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, nil)
}

func (m *Module) recoveryBackup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Code  string `json:"code"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	masked, err := m.auth.RecoverWithBackupCode(r.Context(), req.Email, req.Code)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusAccepted, map[string]string{"masked_email": masked})
}
