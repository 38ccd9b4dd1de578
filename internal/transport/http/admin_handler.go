package http

import (
	"net/http"

	"quizrevenue/internal/app"

	"github.com/labstack/echo/v4"
)

type adminHandler struct {
	catalog   *app.CatalogService
	dashboard *app.DashboardService
}

func (h *adminHandler) listQuizzes(c echo.Context) error {
	var q app.AdminQuizQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	quizzes, err := h.catalog.ListAdminQuizzes(c.Request().Context(), currentUser(c), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quizzes)
}

func (h *adminHandler) createQuiz(c echo.Context) error {
	var req app.CreateQuizRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	quiz, err := h.catalog.CreateQuiz(c.Request().Context(), currentUser(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, quiz)
}

func (h *adminHandler) approve(c echo.Context) error {
	quiz, err := h.catalog.ApproveQuiz(c.Request().Context(), h.actor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quiz)
}

func (h *adminHandler) reject(c echo.Context) error {
	var req app.RejectQuizRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	quiz, err := h.catalog.RejectQuiz(c.Request().Context(), h.actor(c), c.Param("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quiz)
}

func (h *adminHandler) analytics(c echo.Context) error {
	a, err := h.dashboard.Analytics(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *adminHandler) revenue(c echo.Context) error {
	days, err := h.dashboard.RevenueAnalytics(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, days)
}

func (h *adminHandler) fraudLogs(c echo.Context) error {
	logs, err := h.dashboard.FraudLogs(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *adminHandler) auditLogs(c echo.Context) error {
	logs, err := h.catalog.ListAuditLogs(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *adminHandler) actor(c echo.Context) app.Actor {
	return app.Actor{User: currentUser(c), Client: clientInfo(c)}
}
