package api

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"contrack/domain"
)

func registerAttachments(e *echo.Echo, store AttachmentStore, auth Authenticator, filesBase string) {
	e.POST("/items/:id/attachments", uploadAttachment(store, auth, filesBase))
	e.GET("/items/:id/attachments", listAttachments(store, auth))
	e.GET("/attachments/:id/download", downloadAttachment(store, auth, filesBase))
}

// uploadAttachment writes the file under <base>/contracts/<year>/ with a
// random name before creating the database row. The write is synchronous; if
// the row insert fails afterwards the file is left behind, which is accepted.
func uploadAttachment(store AttachmentStore, auth Authenticator, filesBase string) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization))
		if err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "missing file"})
		}

		relPath, err := storeUpload(fileHeader, filesBase)
		if err != nil {
			c.Logger().Error(err)
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to store file"})
		}

		att := domain.Attachment{
			ItemID:       c.Param("id"),
			FileName:     fileHeader.Filename,
			FilePath:     relPath,
			FileSize:     fileHeader.Size,
			MimeType:     fileHeader.Header.Get(echo.HeaderContentType),
			UploadedByID: userID,
		}
		if err := store.CreateAttachment(c.Request().Context(), &att); err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, att)
	}
}

func storeUpload(fileHeader *multipart.FileHeader, filesBase string) (string, error) {
	year := strconv.Itoa(time.Now().Year())
	dir := filepath.Join(filesBase, "contracts", year)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("random file name: %w", err)
	}
	name := hex.EncodeToString(buf) + filepath.Ext(fileHeader.Filename)
	dst := filepath.Join(dir, name)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, src); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return filepath.Join("contracts", year, name), nil
}

func listAttachments(store AttachmentStore, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		atts, err := store.ListAttachments(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, atts)
	}
}

func downloadAttachment(store AttachmentStore, auth Authenticator, filesBase string) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.UserIDFromAuthHeader(c.Request().Header.Get(echo.HeaderAuthorization)); err != nil {
			return c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
		}
		att, err := store.GetAttachment(c.Request().Context(), c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.Attachment(filepath.Join(filesBase, att.FilePath), att.FileName)
	}
}
