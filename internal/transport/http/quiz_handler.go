package http

import (
	"net/http"

	"quizrevenue/internal/app"

	"github.com/labstack/echo/v4"
)

type quizHandler struct {
	catalog  *app.CatalogService
	attempts *app.AttemptService
}

func (h *quizHandler) list(c echo.Context) error {
	var q app.QuizListQuery
	if err := bind(c, &q); err != nil {
		return err
	}
	quizzes, err := h.catalog.ListQuizzes(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quizzes)
}

func (h *quizHandler) get(c echo.Context) error {
	quiz, err := h.catalog.GetQuiz(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, quiz)
}

func (h *quizHandler) questions(c echo.Context) error {
	questions, err := h.catalog.GetQuestions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, questions)
}

func (h *quizHandler) listCategories(c echo.Context) error {
	categories, err := h.catalog.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, categories)
}

func (h *quizHandler) submitAttempt(c echo.Context) error {
	var req app.SubmitAttemptRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.attempts.Submit(c.Request().Context(), currentUser(c), req, clientInfo(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}
