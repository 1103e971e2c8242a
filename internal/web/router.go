package web

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"track75/internal/httpmiddleware"
)

// RouterOptions tunes the middleware stack.
type RouterOptions struct {
	RateLimitPerMin int
	HSTS            bool
	// Quiet disables request logging.
	Quiet bool
}

// NewRouter wires the pages, health and metrics endpoints.
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if !opts.Quiet {
		r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
			SkipPaths: []string{"/healthz", "/metrics"},
		}))
	}
	r.Use(httpmiddleware.SecurityHeaders(opts.HSTS))
	r.Use(httpmiddleware.NewTokenBucket(opts.RateLimitPerMin, opts.RateLimitPerMin).GinMiddleware())
	r.SetHTMLTemplate(Templates())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	r.GET("/", h.Home)
	r.GET("/register", h.RegisterPage)
	r.POST("/register", h.Register)
	r.GET("/login", h.LoginPage)
	r.POST("/login", h.Login)
	r.GET("/logout", h.Logout)

	attendanceLogin := h.requireLogin("Please log in to mark attendance.")
	r.GET("/attendance", attendanceLogin, h.withIdentity(h.AttendancePage))
	r.POST("/attendance", attendanceLogin, h.withIdentity(h.RecordToday))

	pastLogin := h.requireLogin("Please log in to continue.")
	r.GET("/add-attendance", pastLogin, h.withIdentity(h.PastAttendancePage))
	r.POST("/add-attendance", pastLogin, h.withIdentity(h.RecordPast))
	r.GET("/history", pastLogin, h.withIdentity(h.History))

	profileLogin := h.requireLogin("Please log in to access your profile.")
	r.GET("/profile", profileLogin, h.withIdentity(h.ProfilePage))
	r.POST("/profile", profileLogin, h.withIdentity(h.UpdateProfile))

	r.GET("/overview", h.requireLogin("Please log in to view your overview."), h.withIdentity(h.Overview))

	return r
}
