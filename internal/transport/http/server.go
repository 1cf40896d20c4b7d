// Package http assembles the echo server of the bot builder.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/larasedova/alpina-gpt-builder/internal/log"
	"github.com/larasedova/alpina-gpt-builder/internal/service"
	v1 "github.com/larasedova/alpina-gpt-builder/internal/transport/http/v1"
	"github.com/larasedova/alpina-gpt-builder/internal/transport/ws"
)

// NewServer creates the HTTP server with the JSON API and, when wsServer is
// not nil, the live chat websocket endpoint.
func NewServer(svc *service.Service, wsServer *ws.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.RequestID())
	e.Use(requestLogger(log.Component("HTTPServer")))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Register Routes
	v1.NewHandler(svc).RegisterRoutes(e)
	if wsServer != nil {
		e.GET("/v1/ws", wsServer.HandleWebSocket)
	}

	return e
}

func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
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
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				logger.Warn("Request", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.Info("Request", fields...)
			return nil
		},
	})
}
