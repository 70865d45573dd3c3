package api

import (
	"errors"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Spok95/course-feedback/internal/db"
	"github.com/Spok95/course-feedback/internal/feedback"
	"github.com/Spok95/course-feedback/internal/identity"
	"github.com/Spok95/course-feedback/internal/metrics"
	"github.com/Spok95/course-feedback/internal/observability"
	"github.com/Spok95/course-feedback/internal/session"
)

var (
	errUnauthorized     = echo.NewHTTPError(http.StatusUnauthorized, "missing or malformed token")
	errSessionExpired   = echo.NewHTTPError(http.StatusUnauthorized, "session not found or expired")
	errHttpForbidden    = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errWizardNotStarted = echo.NewHTTPError(http.StatusNotFound, "feedback session not started")
	errBadID            = echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	errSubmitFirst      = echo.NewHTTPError(http.StatusConflict, "submit feedback for this subject first")
)

// domainErrors: статус и текст для доменных ошибок; пустой msg означает err.Error().
var domainErrors = []struct {
	err  error
	code int
	msg  string
}{
	{session.ErrAccountNotFound, http.StatusNotFound, "User not found"},
	{session.ErrNoSession, http.StatusUnauthorized, ""},
	{feedback.ErrFormNotFound, http.StatusNotFound, feedback.MsgFormNotFound},
	{feedback.ErrIncompleteSubmission, http.StatusBadRequest, feedback.MsgIncomplete},
	{feedback.ErrAlreadySubmitted, http.StatusConflict, feedback.MsgAlreadySubmitted},
	{feedback.ErrStaleStep, http.StatusConflict, ""},
	{feedback.ErrNotAnswerable, http.StatusConflict, ""},
	{feedback.ErrNotSubmitted, http.StatusConflict, ""},
	{feedback.ErrFirstStep, http.StatusBadRequest, ""},
	{feedback.ErrUnknownQuestion, http.StatusBadRequest, ""},
	{feedback.ErrInvalidOption, http.StatusBadRequest, ""},
	{identity.ErrWeakPassword, http.StatusBadRequest, ""},
	{identity.ErrMissingEmail, http.StatusBadRequest, ""},
	{db.ErrConflict, http.StatusConflict, "a record with the same unique value already exists"},
	{db.ErrReference, http.StatusConflict, "the record conflicts with related records"},
	{db.ErrNotFound, http.StatusNotFound, "not found"},
}

// newHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
func newHTTPErrorHandler(log *zap.Logger, trans ut.Translator) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, message := classify(err, trans)

		if code >= http.StatusInternalServerError {
			metrics.HandlerErrors.Inc()
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("route", c.Path()),
				zap.Error(err),
			)
			observability.CaptureErrWith(err, map[string]string{"route": c.Path(), "method": c.Request().Method})
		}

		// в debug-режиме видна причина 500; карты полей и тексты 4xx не трогаем
		if c.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, message)
			}
			if err != nil {
				log.Warn("write error response", zap.Error(err))
			}
		}
	}
}

func classify(err error, trans ut.Translator) (int, any) {
	var (
		herr *echo.HTTPError
		verr validator.ValidationErrors
		ferr *ValidationError
		aerr *session.AuthError
	)
	switch {
	case errors.As(err, &herr):
		if herr.Internal != nil {
			var inner *echo.HTTPError
			if errors.As(herr.Internal, &inner) {
				herr = inner
			}
		}
		return herr.Code, herr.Message
	case errors.As(err, &verr):
		fldErrs := make(map[string]string, len(verr))
		for _, vErr := range verr {
			fldErrs[vErr.Field()] = vErr.Translate(trans)
		}
		return http.StatusBadRequest, fldErrs
	case errors.As(err, &ferr):
		if ferr.Fields == nil {
			return http.StatusBadRequest, ferr.Error()
		}
		fldErrs := make(map[string]string, len(ferr.Fields))
		for _, fErr := range ferr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		return http.StatusBadRequest, fldErrs
	case errors.As(err, &aerr):
		return http.StatusBadRequest, aerr.Message
	}

	for _, d := range domainErrors {
		if errors.Is(err, d.err) {
			if d.msg == "" {
				return d.code, d.err.Error()
			}
			return d.code, d.msg
		}
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}
