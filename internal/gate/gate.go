// Package gate implements the site-wide access gateway. While the site is
// gated (maintenance mode), only callers presenting the shared secret see
// real pages; everyone else is rewritten to the holding page with a normal
// 200 response. The gateway is stateless: it compares strings, it never
// touches the store.
package gate

import (
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/serialist/serialist/internal/config"
)

const (
	// QueryParam carries the shared secret on first entry.
	QueryParam = "access"
	// CookieName carries the secret on subsequent requests.
	CookieName = "admin_access"
	// CookieMaxAge is 7 days in seconds.
	CookieMaxAge = 604800
)

// Middleware is the request-level access gate. Configuration is immutable
// for the process lifetime.
type Middleware struct {
	secret         string
	maintenance    bool
	holdingPath    string
	exemptPrefixes []string
	holdingPage    []byte
}

// NewMiddleware creates the gateway from startup configuration.
func NewMiddleware(cfg config.Gate) *Middleware {
	holdingPath := cfg.HoldingPath
	if holdingPath == "" {
		holdingPath = config.DefaultHoldingPath
	}

	return &Middleware{
		secret:      cfg.Secret,
		maintenance: cfg.Maintenance,
		holdingPath: holdingPath,
		exemptPrefixes: []string{
			// Static assets and the API namespace must never be rewritten,
			// and the holding page itself must stay reachable or the
			// rewrite would loop.
			"/static",
			"/api/",
			"/health",
			"/ping",
			"/favicon.ico",
			holdingPath,
		},
		holdingPage: []byte(holdingPageHTML),
	}
}

// Handler returns the Gin middleware. Evaluation order matters: exemptions
// come before any credential check so asset and API traffic is untouched.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.isExempt(c.Request.URL.Path) {
			c.Next()
			return
		}

		if m.secret != "" {
			if c.Query(QueryParam) == m.secret {
				// Entry via query parameter: persist the grant in a cookie
				// so subsequent requests match without the parameter.
				c.SetCookie(CookieName, m.secret, CookieMaxAge, "/", "", false, true)
				c.Next()
				return
			}
			if cookie, err := c.Cookie(CookieName); err == nil && cookie == m.secret {
				c.Next()
				return
			}
		}

		if m.maintenance {
			// Rewrite, not redirect and not an error: the caller gets the
			// holding page body with a 200.
			c.Data(http.StatusOK, "text/html; charset=utf-8", m.holdingPage)
			c.Abort()
			return
		}

		c.Next()
	}
}

// HoldingPage serves the holding page at its own route.
func (m *Middleware) HoldingPage(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", m.holdingPage)
}

// HoldingPath returns the configured holding page route.
func (m *Middleware) HoldingPath() string {
	return m.holdingPath
}

// isExempt applies prefix tests, never exact matches, because nested asset
// paths vary. Any path whose final segment carries a file extension is
// treated as an asset.
func (m *Middleware) isExempt(requestPath string) bool {
	for _, prefix := range m.exemptPrefixes {
		if strings.HasPrefix(requestPath, prefix) {
			return true
		}
	}
	return path.Ext(requestPath) != ""
}

const holdingPageHTML = `<!DOCTYPE html>
<html>
<head>
<title>Coming soon</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
</head>
<body style="font-family: system-ui; max-width: 480px; margin: 120px auto; text-align: center;">
<h1>Coming soon</h1>
<p>We are putting the finishing touches on the site. Check back shortly.</p>
</body>
</html>`
