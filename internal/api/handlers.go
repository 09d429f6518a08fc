package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/internal/textutil"
	"github.com/satriahrh/temantidur/server/usecase"
)

// Voice chat reply headers
const (
	HeaderUserText = "X-User-Text"
	HeaderAIText   = "X-AI-Text"
)

type handler struct {
	services Services
	logger   *zap.Logger
}

func (h *handler) chat(c echo.Context) error {
	var req usecase.ChatRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("Failed to bind chat request", zap.Error(err))
		return c.JSON(http.StatusOK, h.services.Chat.MalformedRequest())
	}

	return c.JSON(http.StatusOK, h.services.Chat.Chat(c.Request().Context(), req))
}

func (h *handler) detectEmotion(c echo.Context) error {
	data, contentType, _, err := readFormFile(c, "image")
	if err != nil {
		return err
	}

	resp, soft, err := h.services.Emotion.DetectEmotion(c.Request().Context(), usecase.ImageUpload{
		Data:        data,
		ContentType: contentType,
		Language:    c.FormValue("language"),
	})
	if err != nil {
		return inputError(c, err)
	}
	if soft != nil {
		return c.JSON(http.StatusOK, soft)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *handler) voiceChat(c echo.Context) error {
	data, contentType, filename, err := readFormFile(c, "audio")
	if err != nil {
		return err
	}

	resp, err := h.services.Voice.HandleVoiceChat(c.Request().Context(), usecase.AudioUpload{
		Data:        data,
		ContentType: contentType,
		Filename:    filename,
	})
	if err != nil {
		return inputError(c, err)
	}

	header := c.Response().Header()
	header.Set(HeaderUserText, headerSafe(resp.UserText))
	header.Set(HeaderAIText, headerSafe(resp.AIText))
	return c.Blob(http.StatusOK, "audio/wav", resp.Audio)
}

func (h *handler) recap(c echo.Context) error {
	var req usecase.RecapRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Warn("Failed to bind recap request", zap.Error(err))
		return c.JSON(http.StatusOK, h.services.Recap.MalformedRequest())
	}

	resp, soft := h.services.Recap.Recap(c.Request().Context(), req)
	if soft != nil {
		return c.JSON(http.StatusOK, soft)
	}
	return c.JSON(http.StatusOK, resp)
}

// readFormFile reads a whole multipart file field. A missing field is
// answered with 422.
func readFormFile(c echo.Context, field string) ([]byte, string, string, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, "", "", echo.NewHTTPError(http.StatusUnprocessableEntity,
			fmt.Sprintf("field '%s' is required", field)).SetInternal(err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to open uploaded %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read uploaded %s: %w", field, err)
	}

	return data, fileHeader.Header.Get(echo.HeaderContentType), fileHeader.Filename, nil
}

// inputError renders a usecase.InputError with its own status. Anything
// else goes to the error handler.
func inputError(c echo.Context, err error) error {
	if inputErr, ok := usecase.AsInputError(err); ok {
		return c.JSON(inputErr.Status, ErrorResponse{
			Error:   inputErr.Code,
			Message: inputErr.Message,
		})
	}
	return err
}

// headerSafe flattens text into a single header line
func headerSafe(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, textutil.StripNewlines(text))
}
