package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/securenest/authkit/pkg/chatlock"
	"github.com/securenest/authkit/pkg/validator"
)

type chatLockView struct {
	Peer                string `json:"peer"`
	Locked              bool   `json:"locked"`
	GrantActive         bool   `json:"grant_active"`
	CooldownRemainingMs int64  `json:"cooldown_remaining_ms"`
}

func lockView(peer string, st chatlock.Status) chatLockView {
	return chatLockView{
		Peer:               peer,
		Locked:             st.Locked,
		GrantActive:        st.GrantActive,
		CooldownRemainingMs: st.CooldownRemaining.Milliseconds(),
	}
}

func peerParam(r *http.Request) (string, error) {
	peer := chi.URLParam(r, "peerID")
	if peer == "" {
		return "", validator.ValidationErrors{{Field: "peer_id", Message: "peer id is required"}}
	}
	return peer, nil
}

func (m *Module) chatlockStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	peer, err := peerParam(r)
	if err != nil {
		m.respondError(w, r, err)
		return
	}

	st, err := m.locks.Status(r.Context(), sess.UserID.String(), peer)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, lockView(peer, st))
}

func (m *Module) chatlockVerify(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	peer, err := peerParam(r)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	var req struct {
		Pin string `json:"pin"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	st, err := m.locks.Attempt(r.Context(), sess.UserID.String(), peer, req.Pin)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, lockView(peer, st))
}

func (m *Module) chatlockLock(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	peer, err := peerParam(r)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	var req struct {
		Pin string `json:"pin"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.locks.Lock(r.Context(), sess.UserID.String(), peer, req.Pin); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, chatLockView{Peer: peer, Locked: true})
}

func (m *Module) chatlockUnlock(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)
	peer, err := peerParam(r)
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	var req struct {
		Pin string `json:"pin"`
	}
	if err := decode(r, &req); err != nil {
		m.respondError(w, r, err)
		return
	}

	if err := m.locks.Unlock(r.Context(), sess.UserID.String(), peer, req.Pin); err != nil {
		m.respondError(w, r, err)
		return
	}
	m.respond(w, http.StatusOK, chatLockView{Peer: peer})
}

func (m *Module) chatlockList(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFrom(r)

	peers, err := m.locks.ListLocked(r.Context(), sess.UserID.String())
	if err != nil {
		m.respondError(w, r, err)
		return
	}
	if peers == nil {
		peers = []string{}
	}
	m.respond(w, http.StatusOK, map[string][]string{"locked": peers})
}
