package api

import (
	"context"
	"errors"
	"net/http"

	"schoollend/internal/calendar"
	"schoollend/internal/form"
	"schoollend/internal/repository"
	"schoollend/internal/scanner"
	"schoollend/internal/service"
	"schoollend/internal/wizard"

	"google.golang.org/grpc/codes"
)

// httpStatus maps domain errors to response codes. Unknown errors are 500.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, form.ErrTermsNotAccepted):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, scanner.ErrScanTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, wizard.ErrDeviceUnavailable),
		errors.Is(err, service.ErrActionNotAllowed):
		return http.StatusConflict
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, repository.ErrDeviceNotFound),
		errors.Is(err, repository.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, wizard.ErrWrongStep),
		errors.Is(err, wizard.ErrNoPreviousStep),
		errors.Is(err, form.ErrIncompleteApplicant),
		errors.Is(err, scanner.ErrEmptyCode),
		isCalendarError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func isCalendarError(err error) bool {
	return errors.Is(err, calendar.ErrDateUnavailable) ||
		errors.Is(err, calendar.ErrDateInPast) ||
		errors.Is(err, calendar.ErrRangeTooLong) ||
		errors.Is(err, calendar.ErrRangeIncomplete) ||
		errors.Is(err, calendar.ErrRangeInverted)
}

// grpcCode is the gRPC counterpart of httpStatus.
func grpcCode(err error) codes.Code {
	switch httpStatus(err) {
	case http.StatusBadRequest:
		return codes.InvalidArgument
	case http.StatusNotFound:
		return codes.NotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return codes.FailedPrecondition
	case http.StatusGatewayTimeout:
		return codes.DeadlineExceeded
	case http.StatusRequestTimeout:
		return codes.Canceled
	case http.StatusTooManyRequests:
		return codes.ResourceExhausted
	default:
		return codes.Internal
	}
}

// errorBody builds the JSON error payload with the extras clients render.
func errorBody(err error) map[string]any {
	body := map[string]any{"error": err.Error()}
	if errors.Is(err, form.ErrTermsNotAccepted) {
		body["alert"] = true
	}
	var missing *form.MissingFieldsError
	if errors.As(err, &missing) {
		body["missing"] = missing.Fields
	}
	return body
}
