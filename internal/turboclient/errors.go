package turboclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/turboagent/turbo-agent/internal/toolerrors"
)

// retryableStatus is the set of HTTP statuses that warrant another attempt
// (spec.md §4.1 and §7): rate limiting and transient upstream failures.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// classify turns one attempt's outcome into a (retryable, *toolerrors.Error)
// pair. attempt is 1-based and only used to render the timeout message's
// attempt count.
func (c *Client) classify(method, path string, reqErr error, resp *http.Response, respBody []byte, attempt int) (bool, *toolerrors.Error) {
	if reqErr != nil {
		if errors.Is(reqErr, context.DeadlineExceeded) {
			return true, toolerrors.Timeout(method, path, attempt, reqErr)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(reqErr, &netErr) && netErr.Timeout() {
			return true, toolerrors.Timeout(method, path, attempt, reqErr)
		}
		return true, toolerrors.Connectivity(c.cfg.BaseURL, reqErr)
	}

	code := resp.StatusCode
	body := string(respBody)

	switch code {
	case http.StatusNotFound:
		return false, toolerrors.NotFound(method, path)
	case http.StatusConflict:
		return false, toolerrors.Conflict(method, path, body)
	case http.StatusUnprocessableEntity:
		return false, toolerrors.InvalidRequest(method, path, body)
	}

	if retryableStatus[code] {
		return true, toolerrors.ServerError(method, path, code)
	}
	if code >= 500 {
		return false, toolerrors.ServerError(method, path, code)
	}
	return false, toolerrors.OtherHTTP(method, path, code, fmt.Sprintf("%.200s", body))
}
