package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoFace indicates the service found no face in the image
	ErrNoFace = errors.New("no faces found")
	// ErrNotFound indicates the template or collection does not exist
	ErrNotFound = errors.New("template not found")
	// ErrUnavailable is returned once retries against the service are
	// exhausted
	ErrUnavailable = errors.New("face service unavailable")
	// ErrInvalidResponse is returned when a success response can not be
	// decoded
	ErrInvalidResponse = errors.New("invalid response from face service")
	// ErrInvalidImage is returned for empty or oversized images
	ErrInvalidImage = errors.New("invalid image")
)

// codeNoFace is the service error code for an image without a face
const codeNoFace = 5

// APIError is an error response returned by the face service
type APIError struct {
	// StatusCode is the HTTP status of the response
	StatusCode    int
	TransactionID string
	Status        string
	Code          int
	Info          string
}

func (e *APIError) Error() string {
	if e.Info != "" {
		return fmt.Sprintf("face service returned status %d code %d: %s",
			e.StatusCode, e.Code, e.Info)
	}
	return fmt.Sprintf("face service returned status %d code %d", e.StatusCode, e.Code)
}

// Is maps service error codes onto the package sentinel errors
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNoFace:
		return e.Code == codeNoFace
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// retryable reports whether the request may succeed if sent again
func (e *APIError) retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError ||
		e.StatusCode == http.StatusTooManyRequests
}

// UserMessage returns the text to show a user for an error from a Provider
func UserMessage(err error) string {

	if err == nil {
		return ""
	}

	if errors.Is(err, ErrNoFace) {
		return "No faces found"
	}

	if errors.Is(err, ErrNotFound) {
		return "Template not found"
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Info != "" {
			return apiErr.Info
		}
		return "Request failed"
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Request timed out"
	}

	if errors.Is(err, ErrUnavailable) {
		return "Network error: " + err.Error()
	}

	return "Request failed"
}
