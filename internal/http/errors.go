package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"userinfo-api/internal/domain"
	"userinfo-api/internal/service"
	"userinfo-api/internal/session"
)

const messageInternal = "internal server error"

// AppError is an error with the HTTP status and client message it maps to.
type AppError struct {
	Status  int
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newAppError(status int, message string, cause error) *AppError {
	return &AppError{Status: status, Message: message, Cause: cause}
}

func badRequest(message string, cause error) *AppError {
	return newAppError(http.StatusBadRequest, message, cause)
}

func unauthorized(message string, cause error) *AppError {
	return newAppError(http.StatusUnauthorized, message, cause)
}

// serviceError translates service and domain errors into AppErrors.
// Anything unrecognised becomes a 500.
func serviceError(err error) *AppError {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, service.ErrEmailTaken):
		return newAppError(http.StatusConflict, service.ErrEmailTaken.Error(), err)
	case errors.Is(err, service.ErrUnknownEmail):
		return unauthorized(service.ErrUnknownEmail.Error(), err)
	case errors.Is(err, service.ErrPasswordMismatch):
		return unauthorized(service.ErrPasswordMismatch.Error(), err)
	case errors.Is(err, session.ErrNoSession):
		return unauthorized("authentication required", err)
	case errors.Is(err, service.ErrProfileNotFound):
		return newAppError(http.StatusNotFound, service.ErrProfileNotFound.Error(), err)
	case errors.Is(err, service.ErrEmailRequired),
		errors.Is(err, service.ErrPasswordRequired),
		errors.Is(err, domain.ErrInvalidAge):
		return badRequest(err.Error(), err)
	case errors.Is(err, domain.ErrInvalidGender):
		return badRequest(domain.ErrInvalidGender.Error(), err)
	}
	return newAppError(http.StatusInternalServerError, messageInternal, err)
}

// bindingError turns a request decoding failure into a 400 with a short
// message naming the offending field where possible.
func bindingError(err error) *AppError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			return badRequest(field+" is required", err)
		case "email":
			return badRequest(field+" must be a valid email", err)
		default:
			return badRequest(field+" is invalid", err)
		}
	}
	return badRequest("invalid request body", err)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// errorHandler renders the last error attached to the context as
// {"message": ...}. Server side failures are logged and never exposed.
func errorHandler(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := serviceError(c.Errors.Last().Err)
		status := appErr.Status
		if status <= 0 {
			status = http.StatusInternalServerError
		}
		message := appErr.Message
		if status >= http.StatusInternalServerError {
			logger.WithFields(logrus.Fields{
				"request_id": c.GetString(requestIDKey),
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
			}).WithError(appErr.Cause).Error("request failed")
			message = messageInternal
		}
		c.AbortWithStatusJSON(status, gin.H{"message": message})
	}
}
