package http

import (
	"net/http"
	"strings"
	"unicode"

	applog "contahogar/internal/log"
	"contahogar/internal/session"
)

// SessionCookie names the cookie that carries the opaque session ID.
const SessionCookie = "contahogar_session"

// sessionFor returns the caller's session, starting a new one and setting
// the cookie when the cookie is missing or its session has expired.
func (s *Server) sessionFor(w http.ResponseWriter, r *http.Request) *session.Session {
	id := ""
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}

	sess, created := s.sessions.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secureCookies || r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Session started",
			applog.FieldSessionID, sess.ID,
			"replaced", id != "")
	}
	return sess
}

// isHTMX reports whether the request came from htmx rather than a plain form post.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// slug turns a participant name into an element ID fragment:
// "Daniel Berrio" -> "daniel-berrio".
func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
