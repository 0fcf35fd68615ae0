package instagram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"
)

const defaultUserAgent = "Instagram 361.0.0.35.82 Android (33/13; 420dpi; 1080x2220; samsung; SM-G991B; o1s; exynos2100; en_US)"

// sessionFile is the on-disk dump produced by the login tooling. The
// bridge never logs in itself; an expired session means re-running that
// tooling.
type sessionFile struct {
	UserID    string `json:"user_id"`
	UserAgent string `json:"user_agent,omitempty"`
	WSURL     string `json:"realtime_url,omitempty"`
	Cookies   []struct {
		Name   string `json:"name"`
		Value  string `json:"value"`
		Domain string `json:"domain"`
		Path   string `json:"path,omitempty"`
	} `json:"cookies"`
}

// AuthSession is a loaded session: the account id plus a cookie jar the
// API client and the realtime listener share.
type AuthSession struct {
	UserID    string
	UserAgent string
	WSURL     string
	Jar       http.CookieJar
}

// LoadSession reads and validates a session dump.
func LoadSession(path string) (*AuthSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse session file %s: %w", path, err)
	}
	if sf.UserID == "" || len(sf.Cookies) == 0 {
		return nil, fmt.Errorf("session file %s: missing user_id or cookies", path)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	for _, c := range sf.Cookies {
		domain := c.Domain
		if domain == "" {
			domain = ".instagram.com"
		}
		path := c.Path
		if path == "" {
			path = "/"
		}
		u := &url.URL{Scheme: "https", Host: strings.TrimPrefix(domain, ".")}
		jar.SetCookies(u, []*http.Cookie{{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  domain,
			Path:    path,
			Expires: time.Now().Add(365 * 24 * time.Hour),
		}})
	}

	ua := sf.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	return &AuthSession{
		UserID:    sf.UserID,
		UserAgent: ua,
		WSURL:     sf.WSURL,
		Jar:       jar,
	}, nil
}

// Realtime derives the listener connection parameters.
func (s *AuthSession) Realtime() *Session {
	return &Session{
		WSURL:     s.WSURL,
		UserAgent: s.UserAgent,
		CookieJar: s.Jar,
	}
}
