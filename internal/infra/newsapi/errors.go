package newsapi

import (
	"errors"
	"fmt"
)

// ErrMalformedPayload is returned when a response body is not the expected JSON.
var ErrMalformedPayload = errors.New("malformed news api payload")

// APIError is a failure reported in the body with "status":"error".
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("news api error %s: %s", e.Code, e.Message)
}
