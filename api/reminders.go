package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"contrack/domain"
)

func registerReminders(e *echo.Echo, store ReminderStore, auth Authenticator) {
	e.POST("/reminders", createReminder(store, auth))
	e.GET("/reminders", listReminders(store, auth))
}

type reminderCreateRequest struct {
	ItemID     string `json:"item_id"`
	OffsetDays int    `json:"offset_days"`
	Channel    string `json:"channel"`
}

func createReminder(store ReminderStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req reminderCreateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		reminder := domain.Reminder{
			ItemID:     req.ItemID,
			OffsetDays: req.OffsetDays,
			Channel:    domain.ReminderChannel(req.Channel),
			IsActive:   true,
		}
		if err := store.CreateReminder(c.Request().Context(), &reminder); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, reminder)
	}
}

func listReminders(store ReminderStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		reminders, err := store.ListReminders(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, reminders)
	}
}
