package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3filter"
	govalidator "github.com/go-playground/validator/v10"

	"github.com/tuanvumaihuynh/stock-cart/internal/apperr"
	"github.com/tuanvumaihuynh/stock-cart/internal/model"
	"github.com/tuanvumaihuynh/stock-cart/pkg/validator"
	"github.com/tuanvumaihuynh/stock-cart/pkg/zerror"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type StockShortage struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   string `json:"requested"`
	Available   string `json:"available"`
}

// ErrorResponse is the error response for the API.
type ErrorResponse struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	Details   []FieldError    `json:"details,omitempty"`
	Shortages []StockShortage `json:"shortages,omitempty"`

	// StatusCode is the status code for the error response.
	StatusCode int `json:"-"`
}

// InvalidParamError is returned when a path or query parameter cannot be
// bound to its Go type.
type InvalidParamError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.ParamName, e.Err)
}

func (e *InvalidParamError) Unwrap() error {
	return e.Err
}

func New(err error) ErrorResponse {
	return errorToErrorResponse(err)
}

var InternalServerErr = ErrorResponse{
	Code:       "INTERNAL_SERVER_ERROR",
	Message:    "an unknown error occurred",
	StatusCode: http.StatusInternalServerError,
}

func errorToErrorResponse(err error) ErrorResponse {
	var zErr zerror.ZError
	if errors.As(err, &zErr) {
		res := ErrorResponse{
			Code:       zErr.Code(),
			Message:    zErr.Msg(),
			StatusCode: ZErrorStatusToHTTPStatus(zErr.Status()),
		}

		var shortageErr *apperr.ShortageError
		if errors.As(err, &shortageErr) {
			res.Shortages = make([]StockShortage, 0, len(shortageErr.Shortages))
			for _, s := range shortageErr.Shortages {
				res.Shortages = append(res.Shortages, StockShortage{
					ProductID:   s.ProductID.String(),
					ProductName: s.ProductName,
					Requested:   s.Requested.StringFixed(model.QuantityPlaces),
					Available:   s.Available.StringFixed(model.QuantityPlaces),
				})
			}
		}

		var validationErrs govalidator.ValidationErrors
		if errors.As(err, &validationErrs) {
			res.Details = fieldErrors(validationErrs)
		}

		return res
	}

	var validationErrs govalidator.ValidationErrors
	if errors.As(err, &validationErrs) {
		return ErrorResponse{
			Code:       apperr.ValidationErrorCode,
			Message:    "validation error",
			Details:    fieldErrors(validationErrs),
			StatusCode: http.StatusBadRequest,
		}
	}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		res := ErrorResponse{
			Code:       apperr.ValidationErrorCode,
			Message:    reqErr.Error(),
			StatusCode: http.StatusBadRequest,
		}
		if reqErr.Parameter != nil {
			res.Details = []FieldError{{Field: reqErr.Parameter.Name, Message: reqErr.Reason}}
		}
		return res
	}

	var paramErr *InvalidParamError
	if errors.As(err, &paramErr) {
		return ErrorResponse{
			Code:       apperr.ValidationErrorCode,
			Message:    paramErr.Error(),
			Details:    []FieldError{{Field: paramErr.ParamName, Message: "is invalid"}},
			StatusCode: http.StatusBadRequest,
		}
	}

	return InternalServerErr
}

func fieldErrors(validationErrs govalidator.ValidationErrors) []FieldError {
	details := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		details[i] = FieldError{
			Field:   fe.Field(),
			Message: validator.ValidationErrorMessage(fe),
		}
	}
	return details
}

func ZErrorStatusToHTTPStatus(status zerror.Status) int {
	switch status {
	case zerror.StatusUnauthorized:
		return http.StatusUnauthorized
	case zerror.StatusForbidden:
		return http.StatusForbidden
	case zerror.StatusNotFound:
		return http.StatusNotFound
	case zerror.StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case zerror.StatusConflict:
		return http.StatusConflict
	case zerror.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case zerror.StatusBadRequest:
		return http.StatusBadRequest
	case zerror.StatusValidationFailed:
		return http.StatusBadRequest
	case zerror.StatusUnknown, zerror.StatusInternalServerError:
		return http.StatusInternalServerError
	case zerror.StatusTimeout:
		return http.StatusGatewayTimeout
	case zerror.StatusNotImplemented:
		return http.StatusNotImplemented
	case zerror.StatusBadGateway:
		return http.StatusBadGateway
	case zerror.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
