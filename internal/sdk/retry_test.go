package sdk

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/imroc/req/v3"
	"github.com/stretchr/testify/assert"
)

func respWithStatus(code int) *req.Response {
	return &req.Response{Response: &http.Response{StatusCode: code}}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, shouldRetry(nil, errors.New("dial tcp: connection refused")))
	assert.True(t, shouldRetry(nil, errors.New("read tcp: connection reset by peer")))
	assert.True(t, shouldRetry(nil, errors.New("unexpected EOF")))
	assert.False(t, shouldRetry(nil, errors.New("x509: certificate signed by unknown authority")))

	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, shouldRetry(respWithStatus(code), nil), "status %d", code)
	}
	for _, code := range []int{200, 201, 400, 401, 403, 404, 409, 413} {
		assert.False(t, shouldRetry(respWithStatus(code), nil), "status %d", code)
	}
}

func TestRetryIntervalBackoffAndJitter(t *testing.T) {
	// Nominal delays 2s, 4s, 8s, 16s with +-15% jitter.
	expected := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}
	for i, nominal := range expected {
		attempt := i + 1
		for range 20 {
			d := retryInterval(nil, attempt)
			assert.GreaterOrEqual(t, d, time.Duration(float64(nominal)*0.85))
			assert.LessOrEqual(t, d, time.Duration(float64(nominal)*1.15))
		}
	}

	// Capped past the max.
	d := retryInterval(nil, 10)
	assert.LessOrEqual(t, d, time.Duration(float64(16*time.Second)*1.15))
}
