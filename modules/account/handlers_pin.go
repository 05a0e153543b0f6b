package account

import (
	"net/http"
	"time"

	"github.com/securenest/authkit/pkg/validator"
)

func (m *Module) pinStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)

	hasPin, err := m.auth.PinStatus(r.Context(), sess.UserID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, map[string]bool{"has_pin": hasPin})
}

func (m *Module) pinSet(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	var req struct {
		Pin string `json:"pin"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.auth.SetPin(r.Context(), sess.UserID, req.Pin); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, nil)
}

func (m *Module) pinChange(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	var req struct {
		OldPin string `json:"old_pin"`
		NewPin string `json:"new_pin"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.auth.ChangePin(r.Context(), sess.UserID, req.OldPin, req.NewPin); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, nil)
}

func (m *Module) pinRecoveryStart(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	masked, err := m.auth.StartPinRecovery(r.Context(), sess.UserID, req.Password)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusAccepted, map[string]string{"masked_email": masked})
}

func (m *Module) pinRecoveryVerify(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	var req struct {
		OTP string `json:"otp"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.auth.VerifyPinRecoveryOTP(r.Context(), sess.UserID, req.OTP); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, nil)
}

func (m *Module) pinRecoveryComplete(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	var req struct {
		NewPin     string `json:"new_pin"`
		ConfirmPin string `json:"confirm_pin"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}
	if req.NewPin != req.ConfirmPin {
		m.respondError(w, r, validator.ValidationErrors{
			{Field: "confirm_pin", Message: "PIN confirmation does not match"},
		})
		return
	}

	if err := m.auth.CompletePinRecovery(r.Context(), sess.UserID, req.NewPin); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, nil)
}

func (m *Module) backupCodesGenerate(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)

	codes, err := m.auth.GenerateBackupCodes(r.Context(), sess.UserID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	// Plaintext codes are shown exactly once, on this response.
	m.respond(w, http.StatusCreated, map[string][]string{"codes": codes})
}

type backupCodeView struct {
	Used   bool       `json:"used"`
	UsedAt *time.Time `json:"used_at,omitempty"`
}

func (m *Module) backupCodesList(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)

	codes, err := m.auth.ListBackupCodes(r.Context(), sess.UserID)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	views := make([]backupCodeView, len(codes))
	for i, c := range codes {
		views[i] = backupCodeView{Used: c.Used, UsedAt: c.UsedAt}
	}
	m.respond(w, http.StatusOK, map[string][]backupCodeView{"codes": views})
}

func (m *Module) deletionRequest(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	masked, err := m.auth.RequestAccountDeletion(r.Context(), sess.UserID, req.Password)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusAccepted, map[string]string{"masked_email": masked})
}

func (m *Module) deletionConfirm(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	var req struct {
		OTP string `json:"otp"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.auth.ConfirmAccountDeletion(r.Context(), sess.UserID, req.OTP); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, nil)
}
