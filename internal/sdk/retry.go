package sdk

import (
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
)

const (
	maxRetries       = 4
	retryBaseDelay   = 2 * time.Second
	retryMaxDelay    = 16 * time.Second
	retryBackoffMult = 2
)

// Transient transport failures worth retrying. Anything else (TLS errors,
// bad URLs) fails fast.
var retryableNetErrors = []string{
	"network",
	"failed to fetch",
	"load failed",
	"net::",
	"request failed",
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"i/o timeout",
	"timeout awaiting response",
	"unexpected eof",
	"eof",
}

var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func applyRetryPolicy(client *req.Client) {
	client.
		SetCommonRetryCount(maxRetries).
		SetCommonRetryCondition(shouldRetry).
		SetCommonRetryInterval(retryInterval)
}

func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return isRetryableNetError(err)
	}
	if resp == nil || resp.Response == nil {
		return false
	}
	return retryableStatus[resp.StatusCode]
}

func isRetryableNetError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range retryableNetErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// retryInterval doubles the delay per retry (attempt counts from 1), capped
// at retryMaxDelay, with a +-15% jitter so a fleet of clients doesn't hammer
// in lockstep.
func retryInterval(_ *req.Response, attempt int) time.Duration {
	delay := retryBaseDelay
	for i := 1; i < attempt; i++ {
		delay *= retryBackoffMult
		if delay >= retryMaxDelay {
			delay = retryMaxDelay
			break
		}
	}

	jitter := 0.85 + rand.Float64()*0.3
	return time.Duration(float64(delay) * jitter)
}
