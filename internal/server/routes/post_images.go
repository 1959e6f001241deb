package routes

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pinewilt/kgcurate/backend/pkg/ai"
	"github.com/pinewilt/kgcurate/backend/pkg/logger"
	"github.com/pinewilt/kgcurate/backend/pkg/vision"
)

const maxImageBytes = 20 << 20

func RecognizeImageHandler(c echo.Context) error {
	type recognizeImageResponse struct {
		vision.Analysis
		ArchiveKey string `json:"archive_key,omitempty"`
		ArchiveURL string `json:"archive_url,omitempty"`
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "Missing image file")
	}
	if fh.Size > maxImageBytes {
		return errorJSON(c, http.StatusRequestEntityTooLarge, "Image too large")
	}
	f, err := fh.Open()
	if err != nil {
		return invalidParams(c)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes))
	if err != nil {
		return invalidParams(c)
	}
	if len(data) == 0 {
		return errorJSON(c, http.StatusBadRequest, "Empty image file")
	}

	mimeType := http.DetectContentType(data)
	ctx := c.Request().Context()
	app := appOf(c)

	analysis, err := app.Recognizer.Recognize(ctx, ai.Image{MimeType: mimeType, Data: data})
	if err != nil {
		return internalError(c, "recognize image", err)
	}

	resp := recognizeImageResponse{Analysis: analysis}
	if app.Archive != nil {
		key, err := app.Archive.PutImage(ctx, fh.Filename, mimeType, data)
		if err != nil {
			logger.Warn("[Server] failed to archive image", "file", fh.Filename, "err", err)
		} else {
			resp.ArchiveKey = key
			resp.ArchiveURL = app.Archive.PublicURL(key)
		}
	}

	return c.JSON(http.StatusOK, resp)
}
