package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"contrack/domain"
	"contrack/storage"
)

func registerCategories(e *echo.Echo, store CategoryStore, auth Authenticator) {
	e.GET("/categories", listCategories(store, auth))
	e.POST("/categories", createCategory(store, auth))
	e.GET("/categories/:id", getCategory(store, auth))
	e.PATCH("/categories/:id", updateCategory(store, auth))
	e.DELETE("/categories/:id", deleteCategory(store, auth))
}

func categoryID(c echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

func listCategories(store CategoryStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		cats, err := store.ListCategories(c.Request().Context())
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, cats)
	}
}

func getCategory(store CategoryStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		id, ok := categoryID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid category id"})
		}
		cat, err := store.GetCategory(c.Request().Context(), id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, cat)
	}
}

type categoryCreateRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	ColorCode   string                   `json:"color_code"`
	Fields      []domain.FieldDefinition `json:"fields"`
}

func createCategory(store CategoryStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req categoryCreateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		cat := domain.Category{
			Name:        req.Name,
			Description: req.Description,
			ColorCode:   req.ColorCode,
			Fields:      datatypes.NewJSONType(req.Fields),
		}
		if err := store.CreateCategory(c.Request().Context(), &cat); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, cat)
	}
}

type categoryUpdateRequest struct {
	Name        *string                  `json:"name"`
	Description *string                  `json:"description"`
	ColorCode   *string                  `json:"color_code"`
	Fields      []domain.FieldDefinition `json:"fields"`
}

func updateCategory(store CategoryStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		id, ok := categoryID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid category id"})
		}
		var req categoryUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		patch := storage.CategoryPatch{
			Name:        req.Name,
			Description: req.Description,
			ColorCode:   req.ColorCode,
			Fields:      req.Fields,
		}
		cat, err := store.UpdateCategory(c.Request().Context(), id, patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, cat)
	}
}

func deleteCategory(store CategoryStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		id, ok := categoryID(c)
		if !ok {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid category id"})
		}
		if err := store.DeleteCategory(c.Request().Context(), id); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
