package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"contrack/domain"
	"contrack/storage"
)

// Register wires all API routes on the provided Echo instance. filesBase is
// the root directory attachments are stored under.
func Register(e *echo.Echo, store Store, auth Authenticator, deduper Deduper, filesBase string, logger *log.Logger) {
	e.GET("/healthz", healthz(store))

	e.POST("/items", createItem(store, auth, deduper))
	e.GET("/items", listItems(store, auth, logger))
	e.GET("/items/:id", getItem(store, auth))
	e.PATCH("/items/:id", updateItem(store, auth, deduper))
	e.DELETE("/items/:id", deleteItem(store, auth, deduper))
	e.POST("/items/:id/renew", renewItem(store, auth, deduper))
	e.GET("/items/:id/histories", listItemHistories(store, auth))
	e.GET("/items/:id/status-histories", listStatusHistories(store, auth))
	e.GET("/items/:id/notifications", listItemNotifications(store, auth))

	registerCategories(e, store, auth)
	registerUsers(e, store, auth)
	registerAttachments(e, store, auth, filesBase)
	registerReminders(e, store, auth)
}

func healthz(_ Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// decodeBody decodes a JSON request body, rejecting unknown fields and
// anything over maxBodySize.
func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, maxBodySize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

var errDuplicateRequest = errors.New("duplicate request")

// claimIdempotency consumes the Idempotency-Key header when a deduper is
// configured. The returned release func undoes the claim so a failed request
// may be retried with the same key.
func claimIdempotency(c echo.Context, d Deduper, userID string) (func(), error) {
	key := c.Request().Header.Get("Idempotency-Key")
	if key == "" || d == nil {
		return func() {}, nil
	}
	added, err := d.Add(c.Request().Context(), userID, key)
	if err != nil {
		return nil, err
	}
	if !added {
		return nil, errDuplicateRequest
	}
	return func() { _ = d.Remove(context.Background(), userID, key) }, nil
}

type itemCreateRequest struct {
	Title          string         `json:"title"`
	CategoryID     uint           `json:"category_id"`
	Description    string         `json:"description"`
	RepeatUnit     string         `json:"repeat_unit"`
	RepeatInterval int            `json:"repeat_interval"`
	StartDate      string         `json:"start_date"`
	DueDate        string         `json:"due_date"`
	Status         string         `json:"status"`
	AssigneeID     *string        `json:"assignee_id"`
	Amount         *float64       `json:"amount"`
	ExtraData      map[string]any `json:"extra_data"`
}

func createItem(store ItemStore, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req itemCreateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		release, err := claimIdempotency(c, deduper, userID)
		if err != nil {
			if errors.Is(err, errDuplicateRequest) {
				return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
			}
			return writeError(c, err)
		}

		item := domain.Item{
			Title:          req.Title,
			CategoryID:     req.CategoryID,
			Description:    req.Description,
			RepeatUnit:     domain.RepeatUnit(req.RepeatUnit),
			RepeatInterval: req.RepeatInterval,
			StartDate:      req.StartDate,
			DueDate:        req.DueDate,
			Status:         domain.Status(req.Status),
			AssigneeID:     req.AssigneeID,
			Amount:         req.Amount,
			ExtraData:      req.ExtraData,
			CreatedByID:    userID,
		}
		if err := store.CreateItem(c.Request().Context(), &item); err != nil {
			release()
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, item)
	}
}

func listItems(store ItemStore, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newListRequestMetrics(ctx, logger)
		if spanCtx != nil {
			c.SetRequest(c.Request().WithContext(spanCtx))
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		_, authErr := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.JSON(http.StatusUnauthorized, errorResponse{Error: authErr.Error()})
			return err
		}

		filter := storage.ItemFilter{
			Status:     domain.Status(c.QueryParam("status")),
			AssigneeID: c.QueryParam("assignee_id"),
			FromDate:   c.QueryParam("from_date"),
			ToDate:     c.QueryParam("to_date"),
		}
		if raw := c.QueryParam("category_id"); raw != "" {
			id, parseErr := strconv.ParseUint(raw, 10, 32)
			if parseErr != nil {
				metrics.SetErrorStage("invalid_category_id")
				err = c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid category_id"})
				return err
			}
			filter.CategoryID = uint(id)
		}
		metrics.SetFiltered(filter != (storage.ItemFilter{}))

		fetchStart := time.Now()
		items, fetchErr := store.ListItems(ctx, filter)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			metrics.SetErrorStage("storage")
			err = writeError(c, fetchErr)
			return err
		}
		metrics.SetItemsReturned(len(items))

		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, items)
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

func getItem(store ItemStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		item, err := store.GetItem(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, item)
	}
}

type itemUpdateRequest struct {
	Title          *string        `json:"title"`
	CategoryID     *uint          `json:"category_id"`
	Description    *string        `json:"description"`
	RepeatUnit     *string        `json:"repeat_unit"`
	RepeatInterval *int           `json:"repeat_interval"`
	StartDate      *string        `json:"start_date"`
	DueDate        *string        `json:"due_date"`
	Status         *string        `json:"status"`
	AssigneeID     *string        `json:"assignee_id"`
	Amount         *float64       `json:"amount"`
	ExtraData      map[string]any `json:"extra_data"`
}

func updateItem(store ItemStore, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req itemUpdateRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		release, err := claimIdempotency(c, deduper, userID)
		if err != nil {
			if errors.Is(err, errDuplicateRequest) {
				return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
			}
			return writeError(c, err)
		}
		patch := storage.ItemPatch{
			Title:          req.Title,
			CategoryID:     req.CategoryID,
			Description:    req.Description,
			RepeatInterval: req.RepeatInterval,
			StartDate:      req.StartDate,
			DueDate:        req.DueDate,
			AssigneeID:     req.AssigneeID,
			Amount:         req.Amount,
			ExtraData:      req.ExtraData,
		}
		if req.RepeatUnit != nil {
			unit := domain.RepeatUnit(*req.RepeatUnit)
			patch.RepeatUnit = &unit
		}
		if req.Status != nil {
			status := domain.Status(*req.Status)
			patch.Status = &status
		}
		item, err := store.UpdateItem(c.Request().Context(), c.Param("id"), patch, userID)
		if err != nil {
			release()
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, item)
	}
}

func deleteItem(store ItemStore, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		release, err := claimIdempotency(c, deduper, userID)
		if err != nil {
			if errors.Is(err, errDuplicateRequest) {
				return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
			}
			return writeError(c, err)
		}
		if err := store.SoftDeleteItem(c.Request().Context(), c.Param("id")); err != nil {
			release()
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type renewRequest struct {
	DueDate    string  `json:"due_date"`
	AssigneeID *string `json:"assignee_id"`
	Reason     string  `json:"reason"`
}

func renewItem(store ItemStore, auth Authenticator, deduper Deduper) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		var req renewRequest
		if err := decodeBody(c, &req); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid body"})
		}
		release, err := claimIdempotency(c, deduper, userID)
		if err != nil {
			if errors.Is(err, errDuplicateRequest) {
				return c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
			}
			return writeError(c, err)
		}

		renewal := storage.Renewal{
			DueDate:    req.DueDate,
			AssigneeID: req.AssigneeID,
			Reason:     req.Reason,
		}
		item, err := store.RenewItem(c.Request().Context(), c.Param("id"), renewal, userID)
		if err != nil {
			release()
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, item)
	}
}

func listItemHistories(store ItemStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		histories, err := store.ListItemHistory(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, histories)
	}
}

func listStatusHistories(store ItemStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		transitions, err := store.ListStatusHistory(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, transitions)
	}
}

func listItemNotifications(store ReminderStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		logs, err := store.ListNotifications(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, logs)
	}
}
