package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"track75/internal/account"
	"track75/internal/attendance"
	"track75/internal/auth"
	"track75/internal/metrics"
	"track75/internal/store"
)

const maxFormMemory = 1 << 20

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Handler serves the HTML pages.
type Handler struct {
	accounts      *account.Service
	attendance    *attendance.Service
	sessions      *auth.Sessions
	checks        map[string]HealthCheck
	secureCookies bool
}

// New creates a handler. checks feed /healthz.
func New(accounts *account.Service, att *attendance.Service, sessions *auth.Sessions, checks map[string]HealthCheck, secureCookies bool) *Handler {
	return &Handler{
		accounts:      accounts,
		attendance:    att,
		sessions:      sessions,
		checks:        checks,
		secureCookies: secureCookies,
	}
}

// identityHandler is a page that needs a logged-in user.
type identityHandler func(c *gin.Context, id auth.Identity)

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	res := gin.H{}
	status := http.StatusOK
	for name, check := range h.checks {
		ok := check(c.Request.Context())
		res[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	if status == http.StatusOK {
		res["status"] = "ok"
	} else {
		res["status"] = "degraded"
	}
	c.JSON(status, res)
}

// ---------- Public pages ----------

func (h *Handler) Home(c *gin.Context) {
	h.render(c, "home.tmpl", "Home", gin.H{})
}

type registerForm struct {
	Username        string `form:"username" binding:"required"`
	Email           string `form:"email" binding:"required,email"`
	Password        string `form:"password" binding:"required"`
	ConfirmPassword string `form:"confirm_password" binding:"required"`
}

func (h *Handler) RegisterPage(c *gin.Context) {
	h.render(c, "register.tmpl", "Register", gin.H{})
}

func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		metrics.Registrations.WithLabelValues("invalid").Inc()
		h.redirectWithFlash(c, "/register", flashError, bindingMessage(err))
		return
	}
	_, err := h.accounts.Register(c.Request.Context(), form.Username, form.Email, form.Password, form.ConfirmPassword)
	if err != nil {
		metrics.Registrations.WithLabelValues(outcome(err)).Inc()
		h.redirectWithFlash(c, "/register", flashError, userMessage(err))
		return
	}
	metrics.Registrations.WithLabelValues(metrics.OK).Inc()
	h.redirectWithFlash(c, "/login", flashSuccess, "Registration successful! Please log in.")
}

type loginForm struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, "login.tmpl", "Log in", gin.H{})
}

func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		metrics.Logins.WithLabelValues("invalid").Inc()
		h.redirectWithFlash(c, "/login", flashError, bindingMessage(err))
		return
	}
	acc, err := h.accounts.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		metrics.Logins.WithLabelValues(outcome(err)).Inc()
		h.redirectWithFlash(c, "/login", flashError, userMessage(err))
		return
	}
	if err := h.sessions.Start(c, auth.Identity{UserID: acc.ID, Username: acc.Username}); err != nil {
		log.Printf("session start failed: %v", err)
		metrics.Logins.WithLabelValues(metrics.Error).Inc()
		h.redirectWithFlash(c, "/login", flashError, "Could not start a session, please try again.")
		return
	}
	metrics.Logins.WithLabelValues(metrics.OK).Inc()
	h.redirectWithFlash(c, "/", flashSuccess, "Login successful!")
}

// logoutMissingAccount is where fail sends a session whose account is gone.
const logoutMissingAccount = "/logout?account=missing"

func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.End(c); err != nil {
		log.Printf("session revoke failed: %v", err)
	}
	if c.Query("account") == "missing" {
		h.redirectWithFlash(c, "/", flashError, "User not found.")
		return
	}
	h.redirectWithFlash(c, "/", flashInfo, "Logged out.")
}

// ---------- Attendance ----------

func (h *Handler) AttendancePage(c *gin.Context, id auth.Identity) {
	acc, ok := h.account(c, id)
	if !ok {
		return
	}
	today := h.attendance.Today()
	current, err := h.currentStatuses(c.Request.Context(), id.UserID, today)
	if err != nil {
		h.fail(c, "/", err)
		return
	}
	h.render(c, "attendance.tmpl", "Attendance", gin.H{
		"Subjects":  acc.Subjects,
		"Statuses":  attendance.Statuses,
		"Current":   current,
		"Date":      today,
		"AllowDate": false,
	})
}

func (h *Handler) RecordToday(c *gin.Context, id auth.Identity) {
	_, err := h.attendance.RecordToday(c.Request.Context(), id.UserID, formStatuses(c))
	if err != nil {
		metrics.Submissions.WithLabelValues(attendance.SourceToday, metrics.Error).Inc()
		h.fail(c, "/attendance", err)
		return
	}
	metrics.Submissions.WithLabelValues(attendance.SourceToday, metrics.OK).Inc()
	h.redirectWithFlash(c, "/attendance", flashSuccess, "Attendance recorded successfully!")
}

func (h *Handler) PastAttendancePage(c *gin.Context, id auth.Identity) {
	acc, ok := h.account(c, id)
	if !ok {
		return
	}
	date := c.Query("date")
	current := map[string]attendance.Status{}
	if date != "" {
		var err error
		if current, err = h.currentStatuses(c.Request.Context(), id.UserID, date); err != nil {
			h.fail(c, "/", err)
			return
		}
	}
	h.render(c, "attendance.tmpl", "Add attendance", gin.H{
		"Subjects":  acc.Subjects,
		"Statuses":  attendance.Statuses,
		"Current":   current,
		"Date":      date,
		"AllowDate": true,
	})
}

func (h *Handler) RecordPast(c *gin.Context, id auth.Identity) {
	date := strings.TrimSpace(c.PostForm("date"))
	_, err := h.attendance.Record(c.Request.Context(), id.UserID, date, formStatuses(c))
	if err != nil {
		metrics.Submissions.WithLabelValues(attendance.SourcePast, metrics.Error).Inc()
		h.fail(c, "/add-attendance", err)
		return
	}
	metrics.Submissions.WithLabelValues(attendance.SourcePast, metrics.OK).Inc()
	h.redirectWithFlash(c, "/overview", flashSuccess, fmt.Sprintf("Attendance for %s recorded.", date))
}

func (h *Handler) Overview(c *gin.Context, id auth.Identity) {
	ov, err := h.attendance.Overview(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, "/", err)
		return
	}
	metrics.OverviewRecords.Observe(float64(ov.TotalDays))
	h.render(c, "overview.tmpl", "Overview", gin.H{"Overview": ov})
}

func (h *Handler) History(c *gin.Context, id auth.Identity) {
	entries, err := h.attendance.History(c.Request.Context(), id.UserID, 50)
	if err != nil {
		h.fail(c, "/", err)
		return
	}
	h.render(c, "history.tmpl", "History", gin.H{"Entries": entries})
}

// ---------- Profile ----------

func (h *Handler) ProfilePage(c *gin.Context, id auth.Identity) {
	acc, ok := h.account(c, id)
	if !ok {
		return
	}
	slots := make([]string, account.MaxSubjects)
	copy(slots, acc.Subjects)
	h.render(c, "profile.tmpl", "Profile", gin.H{"Account": acc, "Slots": slots})
}

func (h *Handler) UpdateProfile(c *gin.Context, id auth.Identity) {
	subjects := make([]string, 0, account.MaxSubjects)
	for i := 1; i <= account.MaxSubjects; i++ {
		subjects = append(subjects, c.PostForm(fmt.Sprintf("subject%d", i)))
	}
	_, err := h.accounts.UpdateProfile(c.Request.Context(), id.UserID, c.PostForm("department"), subjects)
	if err != nil {
		h.fail(c, "/profile", err)
		return
	}
	h.redirectWithFlash(c, "/profile", flashSuccess, "Profile updated successfully!")
}

// ---------- helpers ----------

// withIdentity hands the identity set by auth.Required to fn.
func (h *Handler) withIdentity(fn identityHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := auth.IdentityFrom(c)
		if !ok {
			h.redirectWithFlash(c, "/login", flashError, "Please log in to continue.")
			return
		}
		fn(c, id)
	}
}

// requireLogin redirects to the login page with message when there is no
// session. A failed session lookup is reported like any storage failure.
func (h *Handler) requireLogin(message string) gin.HandlerFunc {
	return auth.Required(h.sessions, func(c *gin.Context, err error) {
		if errors.Is(err, auth.ErrNotAuthenticated) {
			h.redirectWithFlash(c, "/login", flashError, message)
			return
		}
		h.fail(c, "/", err)
	})
}

// account loads the session's account. On failure it has already responded.
func (h *Handler) account(c *gin.Context, id auth.Identity) (*account.Account, bool) {
	acc, err := h.accounts.Get(c.Request.Context(), id.UserID)
	if err != nil {
		h.fail(c, "/", err)
		return nil, false
	}
	return acc, true
}

func (h *Handler) currentStatuses(ctx context.Context, userID, date string) (map[string]attendance.Status, error) {
	current := map[string]attendance.Status{}
	rec, err := h.attendance.Get(ctx, userID, date)
	if err != nil || rec == nil {
		return current, err
	}
	for _, entry := range rec.Classes {
		current[entry.Subject] = entry.Status
	}
	return current, nil
}

// fail maps err to a flash and redirects. A missing account ends the session.
func (h *Handler) fail(c *gin.Context, to string, err error) {
	if errors.Is(err, account.ErrUserNotFound) {
		c.Redirect(http.StatusSeeOther, logoutMissingAccount)
		return
	}
	if errors.Is(err, store.ErrUnavailable) {
		log.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	h.redirectWithFlash(c, to, flashError, userMessage(err))
}

func (h *Handler) redirectWithFlash(c *gin.Context, to, kind, message string) {
	h.setFlash(c, kind, message)
	c.Redirect(http.StatusSeeOther, to)
}

func (h *Handler) render(c *gin.Context, name, title string, data gin.H) {
	data["Title"] = title
	data["Flash"] = h.popFlash(c)
	if id, ok := auth.IdentityFrom(c); ok {
		data["User"] = &id
	} else if id, err := h.sessions.Identify(c); err == nil {
		data["User"] = &id
	}
	c.HTML(http.StatusOK, name, data)
}

const statusFieldPrefix = "status["

// formStatuses reads the status[<subject>] fields. The subject is everything
// between the prefix and the final bracket, so names may contain brackets.
func formStatuses(c *gin.Context) map[string]attendance.Status {
	if err := c.Request.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.Printf("parse form: %v", err)
	}
	statuses := make(map[string]attendance.Status)
	for key, vals := range c.Request.PostForm {
		if len(vals) == 0 || !strings.HasPrefix(key, statusFieldPrefix) || !strings.HasSuffix(key, "]") {
			continue
		}
		sub := key[len(statusFieldPrefix) : len(key)-1]
		statuses[sub] = attendance.Status(strings.TrimSpace(vals[0]))
	}
	return statuses
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, account.ErrDuplicateEmail):
		return "Email already registered!"
	case errors.Is(err, account.ErrPasswordMismatch):
		return "Passwords do not match!"
	case errors.Is(err, account.ErrInvalidCredentials):
		return "Invalid credentials"
	case errors.Is(err, account.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, attendance.ErrInvalidDate):
		return "Please choose a valid date."
	case errors.Is(err, attendance.ErrInvalidStatus):
		return "Unknown attendance status."
	case errors.Is(err, attendance.ErrUnknownSubject):
		return "That subject is not on your profile."
	case errors.Is(err, store.ErrUnavailable):
		return "Storage is unavailable, please try again."
	}
	return "Something went wrong, please try again."
}

func outcome(err error) string {
	switch {
	case errors.Is(err, account.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, account.ErrPasswordMismatch):
		return "password_mismatch"
	case errors.Is(err, account.ErrInvalidCredentials):
		return "invalid_credentials"
	}
	return metrics.Error
}

var fieldLabels = map[string]string{
	"Username":        "Username",
	"Email":           "Email",
	"Password":        "Password",
	"ConfirmPassword": "Password confirmation",
}

// bindingMessage turns form validation errors into a single sentence.
func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please fill in the form."
	}
	fe := verrs[0]
	label := fieldLabels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return label + " must be a valid email address."
	}
	return label + " is invalid."
}
