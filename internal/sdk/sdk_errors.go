package sdk

import (
	"fmt"

	"github.com/imroc/req/v3"
)

// APIError is the decoded error body of a non-2xx response.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Reason     string `json:"reason,omitempty"`
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api error (%d): %s: %s", e.StatusCode, e.Message, e.Reason)
	}
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

// handleAPIError folds transport and API errors into one return path.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr != nil {
			apiErr.StatusCode = resp.StatusCode
			return fmt.Errorf("%s: %w", operation, apiErr)
		}
		return fmt.Errorf("api error: %s: %s", operation, resp.Status)
	}

	return nil
}
