package logger

import "log/slog"

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String("error", err.Error())
}

// Component records the originating component under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// UserID records the user identifier under the key "user_id".
// If id is nil, it returns an empty Attr.
func UserID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("user_id", id)
}

// PeerID records the chat peer identifier under the key "peer_id".
// If id is nil, it returns an empty Attr.
func PeerID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("peer_id", id)
}

// Email records an email address under the key "email". Callers are expected
// to mask the address first when the record may leave the trust boundary.
func Email(email string) slog.Attr {
	if email == "" {
		return slog.Attr{}
	}
	return slog.String("email", email)
}

// Purpose records a challenge purpose under the key "purpose".
func Purpose(purpose string) slog.Attr {
	return slog.String("purpose", purpose)
}
