package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/watchvibe/auth-service/internal/infra/config"
	"github.com/watchvibe/auth-service/internal/usecase"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// CookieWriter sets and clears the HTTP-only token cookies.
type CookieWriter struct {
	cfg        config.CookieSettings
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewCookieWriter builds a writer from cookie and token configuration.
func NewCookieWriter(cfg config.CookieSettings, jwt config.JWTSettings) *CookieWriter {
	return &CookieWriter{
		cfg:        cfg,
		accessTTL:  jwt.AccessTokenTTL,
		refreshTTL: jwt.RefreshTokenTTL,
	}
}

// SetSession installs both token cookies.
func (w *CookieWriter) SetSession(c *gin.Context, tokens usecase.SessionTokens) {
	w.set(c, accessTokenCookie, tokens.AccessToken, w.accessTTL)
	w.set(c, refreshTokenCookie, tokens.RefreshToken, w.refreshTTL)
}

// Clear expires both token cookies.
func (w *CookieWriter) Clear(c *gin.Context) {
	w.set(c, accessTokenCookie, "", -time.Second)
	w.set(c, refreshTokenCookie, "", -time.Second)
}

func (w *CookieWriter) set(c *gin.Context, name, value string, ttl time.Duration) {
	path := w.cfg.Path
	if path == "" {
		path = "/"
	}

	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   w.cfg.Domain,
		MaxAge:   maxAge,
		Secure:   w.cfg.Secure,
		HttpOnly: true,
		SameSite: parseSameSite(w.cfg.SameSite),
	})
}

func parseSameSite(mode string) http.SameSite {
	switch strings.ToLower(mode) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}
