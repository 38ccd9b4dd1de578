package http

import (
	"net/http"

	"quizrevenue/internal/app"

	"github.com/labstack/echo/v4"
)

type dashboardHandler struct {
	dashboard   *app.DashboardService
	leaderboard *app.LeaderboardService
}

func (h *dashboardHandler) stats(c echo.Context) error {
	stats, err := h.dashboard.Stats(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *dashboardHandler) recentActivity(c echo.Context) error {
	rows, err := h.dashboard.RecentActivity(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *dashboardHandler) earnings(c echo.Context) error {
	summary, err := h.dashboard.Earnings(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *dashboardHandler) leaderboardSnapshot(c echo.Context) error {
	scope, region, err := app.ParseScope(c.QueryParam("scope"), c.QueryParam("region"))
	if err != nil {
		return err
	}
	entries, err := h.leaderboard.Snapshot(c.Request().Context(), scope, region)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
