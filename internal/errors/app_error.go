package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code       string
	Message    string
	Detail     string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) WithDetail(detail string) *AppError {
	e.Detail = detail

	return e
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err

	return e
}

const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeDatabaseError    = "DATABASE_ERROR"
	ErrCodeCouponRejected   = "COUPON_REJECTED"
	ErrCodeGatewayError     = "GATEWAY_ERROR"
	ErrCodePaymentRejected  = "PAYMENT_REJECTED"
	ErrCodePaymentCancelled = "PAYMENT_CANCELLED"
	ErrCodeVerification     = "VERIFICATION_ERROR"
)

func ValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func BadRequestError(message string) *AppError {
	return NewAppError(ErrCodeBadRequest, message, http.StatusBadRequest)
}

func NotFoundError(message string) *AppError {
	return NewAppError(ErrCodeNotFound, message, http.StatusNotFound)
}

func UnauthorizedError(message string) *AppError {
	return NewAppError(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

func ConflictError(message string) *AppError {
	return NewAppError(ErrCodeConflict, message, http.StatusConflict)
}

func InternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func DatabaseError(message string) *AppError {
	return NewAppError(ErrCodeDatabaseError, message, http.StatusInternalServerError)
}

// CouponError covers every rejected coupon application: unknown code, expired,
// below minimum purchase, usage exhausted. The cart stays untouched.
func CouponError(message string) *AppError {
	return NewAppError(ErrCodeCouponRejected, message, http.StatusUnprocessableEntity)
}

// GatewayError is a transport or protocol failure talking to the payment
// gateway; the shopper may retry.
func GatewayError(message string) *AppError {
	return NewAppError(ErrCodeGatewayError, message, http.StatusBadGateway)
}

// PaymentRejectedError is a definite "payment failed" from the gateway.
func PaymentRejectedError(message string) *AppError {
	return NewAppError(ErrCodePaymentRejected, message, http.StatusPaymentRequired)
}

// PaymentCancelledError is the gateway's own user-cancelled status.
func PaymentCancelledError(message string) *AppError {
	return NewAppError(ErrCodePaymentCancelled, message, http.StatusConflict)
}

// VerificationError is a callback that cannot be verified: missing or
// malformed tokens, or transport failure during verify.
func VerificationError(message string) *AppError {
	return NewAppError(ErrCodeVerification, message, http.StatusBadRequest)
}

func IsAppError(err error) (*AppError, bool) {
	var appError *AppError

	if errors.As(err, &appError) {
		return appError, true
	}

	return nil, false
}

// field validation error.
func AddValidationError(field, reason string) *AppError {
	return ValidationError(fmt.Sprintf("Invalid field '%s': %s", field, reason))
}
