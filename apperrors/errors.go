package apperrors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error represents an application error
type Error struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(msg string) *Error    { return New(http.StatusBadRequest, msg, nil) }
func Unauthorized(msg string) *Error  { return New(http.StatusUnauthorized, msg, nil) }
func Forbidden(msg string) *Error     { return New(http.StatusForbidden, msg, nil) }
func NotFound(msg string) *Error      { return New(http.StatusNotFound, msg, nil) }
func Conflict(msg string) *Error      { return New(http.StatusConflict, msg, nil) }
func Unprocessable(msg string) *Error { return New(http.StatusUnprocessableEntity, msg, nil) }

func Unavailable(msg string, err error) *Error {
	return New(http.StatusServiceUnavailable, msg, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "Internal server error", err)
}

// From converts any error into an *Error, treating unknown errors as internal.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// StatusOf returns the HTTP status an error would be rendered with.
func StatusOf(err error) int {
	return From(err).Code
}

// ErrorMiddleware renders the last error attached with c.Error when no response was written.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		appErr := From(c.Errors.Last().Err)
		c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
	}
}
