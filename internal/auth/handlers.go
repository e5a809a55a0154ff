package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Controller serves the login, logout, and first-run setup endpoints.
type Controller struct {
	service        *Service
	sessionManager *SessionManager
}

// NewController creates the auth controller.
func NewController(service *Service, sessionManager *SessionManager) *Controller {
	return &Controller{
		service:        service,
		sessionManager: sessionManager,
	}
}

// RegisterRoutes attaches the auth endpoints to the router.
func (ac *Controller) RegisterRoutes(r gin.IRouter) {
	r.GET("/login", ac.LoginPage)
	r.POST("/login", ac.Login)
	r.POST("/logout", ac.Logout)
	r.POST("/setup", ac.Setup)
}

type credentialsForm struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// LoginPage renders a minimal login form. The real site fronts this with
// its own markup; the form exists so the flow works without it.
func (ac *Controller) LoginPage(c *gin.Context) {
	notice := ""
	if c.Query("banned") == "1" {
		notice = `<p class="notice">Your account has been banned. The session was ended.</p>`
	}
	page := `<!DOCTYPE html>
<html>
<head><title>Sign in</title></head>
<body>` + notice + `
<form method="post" action="/login">
` + CSRFTokenField(c) + `
<input name="username" placeholder="username or email" autofocus>
<input name="password" type="password" placeholder="password">
<button type="submit">Sign in</button>
</form>
</body>
</html>`
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

// Login authenticates credentials and opens a session.
// POST /login
func (ac *Controller) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := ac.service.Authenticate(form.Username, form.Password)
	if err != nil {
		status := http.StatusUnauthorized
		message := "invalid credentials"
		if errors.Is(err, ErrUserBanned) {
			status = http.StatusForbidden
			message = "account is banned"
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("[AUTH] Failed to create session for user %d: %v", user.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create session"})
		return
	}

	next := c.Query("next")
	if next == "" || !strings.HasPrefix(next, "/") {
		next = "/"
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "signed in", "user_id": user.ID})
		return
	}
	c.Redirect(http.StatusSeeOther, next)
}

// Logout destroys the session.
// POST /logout
func (ac *Controller) Logout(c *gin.Context) {
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("[AUTH] Failed to destroy session: %v", err)
	}

	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"message": "signed out"})
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

// Setup creates the first account. Only available while the user table is
// empty; afterwards account creation belongs to the site's own signup flow.
// POST /setup
func (ac *Controller) Setup(c *gin.Context) {
	hasUsers, err := ac.service.HasUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "setup unavailable"})
		return
	}
	if hasUsers {
		c.JSON(http.StatusForbidden, gin.H{"error": "setup already completed"})
		return
	}

	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	user, err := ac.service.CreateUser(form.Username, form.Email, form.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "account created", "user_id": user.ID})
}

func wantsJSON(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "application/json") ||
		strings.Contains(c.GetHeader("Content-Type"), "application/json")
}
