package engine

import (
	"errors"
	"strings"

	"mentor-miniapp/internal/api"
)

// ValidationError is a local input problem; nothing was sent to the backend.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Field + " is required"
}

func required(field, label string) error {
	return &ValidationError{Field: field, Message: label + " is required"}
}

// UserMessage is the text shown for err in the toast.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	var re *api.RequestError
	if errors.As(err, &re) {
		return re.Error()
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "Something went wrong"
	}
	return msg
}
