package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Is lets errors.Is match a wrapped copy against its sentinel by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrValidation = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API key",
		StatusCode: 401,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrIdentityNotFound = &AppError{
		Code:       "IDENTITY_NOT_FOUND",
		Message:    "Identity not found",
		StatusCode: 404,
	}

	ErrIdentityExists = &AppError{
		Code:       "IDENTITY_ALREADY_EXISTS",
		Message:    "An identity with this name is already enrolled",
		StatusCode: 409,
	}

	ErrInvalidPermissionLevel = &AppError{
		Code:       "INVALID_PERMISSION_LEVEL",
		Message:    "Permission level is not one of the known levels",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	// Fewer than two enrolled identities: the classifier has nothing
	// to discriminate between and cannot be trained.
	ErrInsufficientData = &AppError{
		Code:       "INSUFFICIENT_DATA",
		Message:    "At least two enrolled identities are required for training",
		StatusCode: 409,
	}

	ErrClassifierUnavailable = &AppError{
		Code:       "CLASSIFIER_UNAVAILABLE",
		Message:    "Recognition is not available until at least two identities are enrolled",
		StatusCode: 503,
	}

	ErrNotRecognized = &AppError{
		Code:       "NOT_RECOGNIZED",
		Message:    "Face not recognized with sufficient confidence",
		StatusCode: 401,
	}

	ErrEnrollmentFailed = &AppError{
		Code:       "ENROLLMENT_FAILED",
		Message:    "Enrollment could not be completed",
		StatusCode: 500,
	}
)
