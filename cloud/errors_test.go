package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessage(t *testing.T) {

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no face sentinel", fmt.Errorf("enroll: %w", ErrNoFace), "No faces found"},
		{"no face code", &APIError{StatusCode: http.StatusBadRequest, Code: codeNoFace}, "No faces found"},
		{"not found", &APIError{StatusCode: http.StatusNotFound}, "Template not found"},
		{"info", &APIError{StatusCode: http.StatusBadRequest, Code: 7, Info: "Photo too small"}, "Photo too small"},
		{"api no info", &APIError{StatusCode: http.StatusBadRequest, Code: 7}, "Request failed"},
		{"deadline", fmt.Errorf("identify: %w", context.DeadlineExceeded), "Request timed out"},
		{"unavailable", fmt.Errorf("%w: %w", ErrUnavailable, errors.New("connection refused")),
			"Network error: face service unavailable: connection refused"},
		{"other", errors.New("boom"), "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UserMessage(tt.err))
		})
	}
}

func TestAPIErrorRetryable(t *testing.T) {

	assert.True(t, (&APIError{StatusCode: http.StatusInternalServerError}).retryable())
	assert.True(t, (&APIError{StatusCode: http.StatusBadGateway}).retryable())
	assert.True(t, (&APIError{StatusCode: http.StatusTooManyRequests}).retryable())
	assert.False(t, (&APIError{StatusCode: http.StatusBadRequest}).retryable())
	assert.False(t, (&APIError{StatusCode: http.StatusNotFound}).retryable())
}

func TestAPIErrorMessage(t *testing.T) {

	err := &APIError{StatusCode: 400, Code: 5, Info: "no face"}
	assert.Equal(t, "face service returned status 400 code 5: no face", err.Error())

	err = &APIError{StatusCode: 500}
	assert.Equal(t, "face service returned status 500 code 0", err.Error())
}
