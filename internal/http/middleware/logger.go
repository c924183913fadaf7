package middleware

import (
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"portfolioapi/internal/logger"
)

// Logger writes one access log entry per request with request_id, method, path,
// status and latency_ms. It should run after RequestID.
func Logger(log *zap.Logger) fiber.Handler {
	log = log.WithOptions(zap.WithCaller(false))
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		fields := []zap.Field{
			zap.String("request_id", RequestIDFrom(c)),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("request", append(fields, zap.Error(err))...)
		default:
			log.Info("request", fields...)
		}
		return err
	}
}

// LoggerWithWriter is Logger writing JSON lines to w with timestamps in loc.
func LoggerWithWriter(w io.Writer, loc *time.Location) fiber.Handler {
	l, err := logger.NewWithWriter(w, "info", "json", loc)
	if err != nil {
		l = zap.NewNop()
	}
	return Logger(l)
}
