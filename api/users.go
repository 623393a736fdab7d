package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"contrack/domain"
	"contrack/storage"
)

func registerUsers(e *echo.Echo, store UserStore, auth Authenticator) {
	e.GET("/users", listUsers(store, auth))
	e.POST("/users", createUser(store, auth))
	e.GET("/users/:id", getUser(store, auth))
	e.PATCH("/users/:id", updateUser(store, auth))
}

func getUser(store UserStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		user, err := store.GetUser(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

func listUsers(store UserStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		users, err := store.ListUsers(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, users)
	}
}

type userCreateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func createUser(store UserStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req userCreateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		user, err := store.CreateUser(c.Request().Context(), storage.NewUser{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
			Role:     domain.Role(req.Role),
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, user)
	}
}

type userUpdateRequest struct {
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
}

func updateUser(store UserStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req userUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		user, err := store.UpdateUser(c.Request().Context(), c.Param("id"), storage.UserPatch{
			Email:    req.Email,
			IsActive: req.IsActive,
		})
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, user)
	}
}
