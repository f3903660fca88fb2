package logger

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// New builds a zap logger for the given environment.
func New(env string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	log, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return log, nil
}

// WithRequest returns base annotated with the request id and caller id, if known.
func WithRequest(c *gin.Context, base *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if rid := c.GetString(RequestIDKey); rid != "" {
		fields = append(fields, zap.String("request_id", rid))
	}
	if uid := c.GetString("user_id"); uid != "" {
		fields = append(fields, zap.String("user_id", uid))
	}
	return base.With(fields...)
}
