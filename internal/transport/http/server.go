package http

import (
	"net/http"
	"time"

	"quizrevenue/internal/app"
	"quizrevenue/internal/domain"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services are the use cases the API exposes.
type Services struct {
	Auth        *app.AuthService
	Attempts    *app.AttemptService
	Catalog     *app.CatalogService
	Dashboard   *app.DashboardService
	Leaderboard *app.LeaderboardService
}

// Options tune cookies and the metrics endpoint.
type Options struct {
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	// Gatherer serves /metrics when set.
	Gatherer prometheus.Gatherer
}

// NewRouter builds the echo instance with every route registered.
func NewRouter(svc Services, opts Options, logger *zap.Logger) *echo.Echo {
	if opts.CookieName == "" {
		opts.CookieName = "quizrevenue_session"
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader()
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.Recover())
	e.Use(requestLogger(logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if opts.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := &authHandler{auth: svc.Auth, opts: opts}
	quizzes := &quizHandler{catalog: svc.Catalog, attempts: svc.Attempts}
	dash := &dashboardHandler{dashboard: svc.Dashboard, leaderboard: svc.Leaderboard}
	admin := &adminHandler{catalog: svc.Catalog, dashboard: svc.Dashboard}
	ws := NewWSHandler(svc.Leaderboard, logger)

	api := e.Group("/api")
	api.GET("/categories", quizzes.listCategories)

	a := api.Group("/auth")
	a.POST("/register", auth.register)
	a.POST("/verify-otp", auth.verifyOTP)
	a.POST("/resend-otp", auth.resendOTP)
	a.POST("/login", auth.login)
	a.POST("/logout", auth.logout)
	a.POST("/forgot-password", auth.forgotPassword)
	a.POST("/reset-password", auth.resetPassword)

	requireAuth := auth.requireAuth
	api.GET("/user", auth.currentUser, requireAuth)

	api.GET("/quizzes", quizzes.list, requireAuth)
	api.GET("/quizzes/:id", quizzes.get, requireAuth)
	api.GET("/quizzes/:id/questions", quizzes.questions, requireAuth)
	api.POST("/quiz-attempts", quizzes.submitAttempt, requireAuth)

	api.GET("/dashboard/stats", dash.stats, requireAuth)
	api.GET("/dashboard/recent-activity", dash.recentActivity, requireAuth)
	api.GET("/dashboard/earnings", dash.earnings, requireAuth)
	api.GET("/leaderboard", dash.leaderboardSnapshot, requireAuth)

	api.GET("/admin/quizzes", admin.listQuizzes, requireAuth, requireCapability(domain.CapViewAdminQuizzes))
	api.POST("/admin/quizzes", admin.createQuiz, requireAuth, requireCapability(domain.CapCreateQuizzes))
	api.POST("/admin/quizzes/:id/approve", admin.approve, requireAuth, requireCapability(domain.CapModerateQuizzes))
	api.POST("/admin/quizzes/:id/reject", admin.reject, requireAuth, requireCapability(domain.CapModerateQuizzes))

	api.GET("/superadmin/analytics", admin.analytics, requireAuth, requireCapability(domain.CapViewGlobalAnalytics))
	api.GET("/superadmin/revenue", admin.revenue, requireAuth, requireCapability(domain.CapViewGlobalAnalytics))
	api.GET("/superadmin/fraud-logs", admin.fraudLogs, requireAuth, requireCapability(domain.CapViewFraudLogs))
	api.GET("/superadmin/audit-logs", admin.auditLogs, requireAuth, requireCapability(domain.CapViewAuditLogs))

	e.GET("/ws/leaderboard", ws.ServeWS, requireAuth)
	return e
}

// messageResponse is the body of endpoints that only confirm an action.
type messageResponse struct {
	Message string `json:"message"`
}

func clientInfo(c echo.Context) app.ClientInfo {
	req := c.Request()
	return app.ClientInfo{
		IPAddress:         c.RealIP(),
		UserAgent:         req.UserAgent(),
		DeviceFingerprint: req.Header.Get("X-Device-Fingerprint"),
	}
}

// bind decodes the request into dst, reporting malformed bodies as validation errors.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return domain.Validation("Invalid request body", nil)
	}
	return nil
}
