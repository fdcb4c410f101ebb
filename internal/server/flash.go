package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "flash"

const (
	flashSuccess = "success"
	flashInfo    = "info"
	flashError   = "error"
)

// flashMessage is a one-shot notice shown on the next rendered page.
type flashMessage struct {
	Level string `json:"level"`
	Text  string `json:"text"`
}

// addFlash queues a notice for the next page, keeping any that have not
// been shown yet.
func (s *Server) addFlash(w http.ResponseWriter, r *http.Request, level, text string) {
	messages := append(readFlashes(r), flashMessage{Level: level, Text: text})
	payload, err := json.Marshal(messages)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to encode flash messages")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(payload),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.Session.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns the queued notices and clears them.
func (s *Server) popFlashes(w http.ResponseWriter, r *http.Request) []flashMessage {
	messages := readFlashes(r)
	if _, err := r.Cookie(flashCookieName); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   s.cfg.Session.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return messages
}

func readFlashes(r *http.Request) []flashMessage {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	var messages []flashMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil
	}
	return messages
}
