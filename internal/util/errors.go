package util

import (
	"errors"
	"net/http"
)

type ErrorKind string

const (
	KindNotFound   ErrorKind = "NotFound"
	KindConflict   ErrorKind = "Conflict"
	KindForbidden  ErrorKind = "Forbidden"
	KindValidation ErrorKind = "ValidationError"
)

// AppError 面向调用方的业务错误，Code 用于区分具体原因
type AppError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Status() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func newAppError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

var (
	ErrUserNotFound         = newAppError(KindNotFound, "USER_NOT_FOUND", "user not found")
	ErrCourseNotFound       = newAppError(KindNotFound, "COURSE_NOT_FOUND", "course not found")
	ErrNotEnrolled          = newAppError(KindNotFound, "NOT_ENROLLED", "course progress not found")
	ErrEventNotFound        = newAppError(KindNotFound, "EVENT_NOT_FOUND", "event not found")
	ErrNotRegistered        = newAppError(KindNotFound, "NOT_REGISTERED", "not registered for this event")
	ErrResourceNotFound     = newAppError(KindNotFound, "RESOURCE_NOT_FOUND", "resource not found")
	ErrTopicNotFound        = newAppError(KindNotFound, "TOPIC_NOT_FOUND", "topic not found")
	ErrAssessmentNotFound   = newAppError(KindNotFound, "ASSESSMENT_NOT_FOUND", "assessment not found")
	ErrNotificationNotFound = newAppError(KindNotFound, "NOTIFICATION_NOT_FOUND", "notification not found")
	ErrConsentNotFound      = newAppError(KindNotFound, "CONSENT_NOT_FOUND", "no active consent of this type")

	ErrAlreadyEnrolled   = newAppError(KindConflict, "ALREADY_ENROLLED", "already enrolled in this course")
	ErrEventFull         = newAppError(KindConflict, "EVENT_FULL", "event is full")
	ErrAlreadyRegistered = newAppError(KindConflict, "ALREADY_REGISTERED", "already registered for this event")
	ErrFeedbackSubmitted = newAppError(KindConflict, "FEEDBACK_ALREADY_SUBMITTED", "feedback already submitted")

	ErrPremiumRequired   = newAppError(KindForbidden, "PREMIUM_REQUIRED", "premium subscription required")
	ErrProgressForbidden = newAppError(KindForbidden, "PROGRESS_FORBIDDEN", "not authorized to view this progress")
	ErrPermissionDenied  = newAppError(KindForbidden, "PERMISSION_DENIED", "permission denied")

	ErrInvalidPercentage = newAppError(KindValidation, "INVALID_PERCENTAGE", "progress percentage must be between 0 and 100")
	ErrEmptyAnswers      = newAppError(KindValidation, "EMPTY_ANSWERS", "answers must not be empty")
	ErrInvalidFileType   = newAppError(KindValidation, "INVALID_FILE_TYPE", "file type not allowed")
	ErrInvalidConsent    = newAppError(KindValidation, "INVALID_CONSENT_TYPE", "unknown consent type")
)

// AsAppError 判断 err 链中是否含有业务错误
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
