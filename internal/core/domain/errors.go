package domain

import (
	"errors"
	"maps"
)

// ErrorKind is the machine-checkable category of a domain error.
// Callers (the HTTP layer) map kinds to status codes.
type ErrorKind string

const (
	KindInvalidInput           ErrorKind = "INVALID_INPUT"
	KindDuplicatePhone         ErrorKind = "DUPLICATE_PHONE"
	KindDuplicateEmail         ErrorKind = "DUPLICATE_EMAIL"
	KindInvalidCode            ErrorKind = "INVALID_CODE"
	KindExpiredCode            ErrorKind = "EXPIRED_CODE"
	KindTooManyAttempts        ErrorKind = "TOO_MANY_ATTEMPTS"
	KindResendTooSoon          ErrorKind = "RESEND_TOO_SOON"
	KindDeliveryFailed         ErrorKind = "DELIVERY_FAILED"
	KindPhoneNotRegistered     ErrorKind = "PHONE_NOT_REGISTERED"
	KindPhoneAlreadyRegistered ErrorKind = "PHONE_ALREADY_REGISTERED"
	KindNoPendingRegistration  ErrorKind = "NO_PENDING_REGISTRATION"
	KindOTPNotVerified         ErrorKind = "OTP_NOT_VERIFIED"
	KindStepNotAllowed         ErrorKind = "STEP_NOT_ALLOWED"
	KindRegistrationIncomplete ErrorKind = "REGISTRATION_INCOMPLETE"
	KindPlanNotFound           ErrorKind = "PLAN_NOT_FOUND"
	KindPlanInactive           ErrorKind = "PLAN_INACTIVE"
	KindSubscriptionNotChosen  ErrorKind = "SUBSCRIPTION_NOT_CHOSEN"
	KindAlreadyPaid            ErrorKind = "ALREADY_PAID"
	KindPaymentDeclined        ErrorKind = "PAYMENT_DECLINED"
	KindAccountNotFound        ErrorKind = "ACCOUNT_NOT_FOUND"
	KindAccountInactive        ErrorKind = "ACCOUNT_INACTIVE"
	KindSessionNotFound        ErrorKind = "SESSION_NOT_FOUND"
	KindOwnershipMismatch      ErrorKind = "OWNERSHIP_MISMATCH"
	KindInternal               ErrorKind = "INTERNAL"
)

// Error is the structured error returned across the core boundary.
type Error struct {
	Kind    ErrorKind
	Message string            // internal, English; localized text comes from i18n
	Fields  map[string]string // field-keyed validation details
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithField returns a copy of e carrying an extra field detail.
func (e *Error) WithField(field, detail string) *Error {
	cp := *e
	cp.Fields = maps.Clone(e.Fields)
	if cp.Fields == nil {
		cp.Fields = make(map[string]string, 1)
	}
	cp.Fields[field] = detail
	return &cp
}

// NewError creates a domain error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError creates a domain error that wraps an underlying cause.
func WrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// FieldError creates a domain error with a single field detail.
func FieldError(kind ErrorKind, message, field, detail string) *Error {
	return &Error{Kind: kind, Message: message, Fields: map[string]string{field: detail}}
}

// KindOf returns the kind of err. Non-domain errors report KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// FieldsOf returns the field details carried by err, if any.
func FieldsOf(err error) map[string]string {
	var de *Error
	if errors.As(err, &de) {
		return de.Fields
	}
	return nil
}

// IsKind reports whether err carries one of the given kinds.
func IsKind(err error, kinds ...ErrorKind) bool {
	k := KindOf(err)
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// Internal wraps an infrastructure failure, leaving domain errors untouched.
func Internal(message string, cause error) error {
	var de *Error
	if errors.As(cause, &de) {
		return cause
	}
	return WrapError(KindInternal, message, cause)
}

var (
	ErrDuplicatePhone         = FieldError(KindDuplicatePhone, "phone number already registered", "phone_number", "already registered")
	ErrDuplicateEmail         = FieldError(KindDuplicateEmail, "email already registered", "email", "already registered")
	ErrInvalidCode            = FieldError(KindInvalidCode, "invalid verification code", "code", "invalid")
	ErrCodeNotFound           = ErrInvalidCode
	ErrExpiredCode            = FieldError(KindExpiredCode, "verification code expired", "code", "expired")
	ErrTooManyAttempts        = FieldError(KindTooManyAttempts, "too many failed attempts", "code", "request a new code")
	ErrResendTooSoon          = NewError(KindResendTooSoon, "verification code requested too recently")
	ErrPhoneNotRegistered     = FieldError(KindPhoneNotRegistered, "phone number not registered", "phone_number", "not registered")
	ErrPhoneAlreadyRegistered = FieldError(KindPhoneAlreadyRegistered, "phone number already registered", "phone_number", "already registered")
	ErrNoPendingRegistration  = NewError(KindNoPendingRegistration, "no pending registration for this phone number")
	ErrOTPNotVerified         = NewError(KindOTPNotVerified, "phone number has not been verified")
	ErrStepNotAllowed         = NewError(KindStepNotAllowed, "registration step not allowed yet")
	ErrRegistrationIncomplete = NewError(KindRegistrationIncomplete, "registration has incomplete steps")
	ErrPlanNotFound           = FieldError(KindPlanNotFound, "subscription plan not found", "plan_id", "not found")
	ErrPlanInactive           = FieldError(KindPlanInactive, "subscription plan is not active", "plan_id", "inactive")
	ErrSubscriptionNotChosen  = NewError(KindSubscriptionNotChosen, "no subscription plan chosen")
	ErrAlreadyPaid            = NewError(KindAlreadyPaid, "subscription already paid")
	ErrPaymentDeclined        = NewError(KindPaymentDeclined, "payment declined")
	ErrAccountNotFound        = NewError(KindAccountNotFound, "account not found")
	ErrAccountInactive        = NewError(KindAccountInactive, "account is not active")
	ErrSessionNotFound        = NewError(KindSessionNotFound, "registration session not found or expired")
	ErrOwnershipMismatch      = NewError(KindOwnershipMismatch, "account does not belong to the caller")
)
