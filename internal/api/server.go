package api

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/satriahrh/temantidur/server/internal/config"
)

// NewServer creates the echo instance with middleware and error rendering
func NewServer(cfg config.ServerConfig, logger *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("requestID", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if len(cfg.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
		}))
	} else {
		e.Use(middleware.CORS())
	}
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	return e
}

// errorHandler renders every HTTP error as an ErrorResponse
func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		var detail string
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			detail = fmt.Sprint(he.Message)
		}

		var body ErrorResponse
		switch code {
		case http.StatusNotFound:
			body = ErrorResponse{
				Error:              "Endpoint not found",
				AvailableEndpoints: endpointList(),
			}
		case http.StatusUnauthorized:
			body = ErrorResponse{
				Error:   "Invalid authentication token",
				Message: "Include header 'Authorization: Bearer <firebase_token>'",
			}
		case http.StatusForbidden:
			body = ErrorResponse{
				Error:   "Access denied",
				Message: "Token does not have required permissions",
			}
		case http.StatusUnprocessableEntity:
			body = ErrorResponse{
				Error:   "Invalid data",
				Message: detail,
			}
		case http.StatusInternalServerError:
			logger.Error("Unhandled error",
				zap.String("path", c.Path()),
				zap.String("requestID", c.Response().Header().Get(echo.HeaderXRequestID)),
				zap.Error(err))
			body = ErrorResponse{
				Error:   "Internal server error",
				Message: "Please try again or contact administrator",
			}
		default:
			body = ErrorResponse{
				Error:  fmt.Sprintf("HTTP %d", code),
				Detail: detail,
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}

func endpointList() []string {
	list := make([]string, 0, len(Endpoints)+1)
	list = append(list, "GET /")
	for endpoint := range Endpoints {
		list = append(list, endpoint)
	}
	sort.Strings(list)
	return list
}
