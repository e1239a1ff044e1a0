package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"sleeperbot/internal/metrics"
)

const (
	OK                     int = 200
	BAD_REQUEST            int = 400
	UNAUTHORIZED           int = 401
	FORBIDDEN              int = 403
	DATA_NOT_FOUND         int = 404
	METHOD_NOT_ALLOWED     int = 405
	UNSUPPORTED_MEDIA_TYPE int = 415
	RATE_LIMIT_EXCEEDED    int = 429
	INTERNAL_SERVER_ERROR  int = 500
	BAD_GATEWAY            int = 502
	SERVICE_UNAVAILABLE    int = 503
	GATEWAY_TIMEOUT        int = 504
)

var messages = map[int]string{
	OK:                     "OK",
	BAD_REQUEST:            "Bad request",
	UNAUTHORIZED:           "Unauthorized",
	FORBIDDEN:              "Forbidden",
	DATA_NOT_FOUND:         "Data not found",
	METHOD_NOT_ALLOWED:     "Method not allowed",
	UNSUPPORTED_MEDIA_TYPE: "Unsupported media type",
	RATE_LIMIT_EXCEEDED:    "Rate limit exceeded",
	INTERNAL_SERVER_ERROR:  "Internal server error",
	BAD_GATEWAY:            "Bad gateway",
	SERVICE_UNAVAILABLE:    "Service unavailable",
	GATEWAY_TIMEOUT:        "Gateway timeout",
}

// Returned when the upstream answers with anything but 200
type StatusError struct {
	Url        string
	StatusCode int
}

func (e *StatusError) Error() string {
	message, ok := messages[e.StatusCode]
	if !ok {
		message = "Unexpected status"
	}
	return fmt.Sprintf("request to %s failed: %d %s", e.Url, e.StatusCode, message)
}

func IsStatus(err error, statusCode int) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == statusCode
}

type Proxy struct {
	header      map[string]string
	client      *http.Client
	timeout     time.Duration
	rateLimiter *RateLimiter
}

func NewProxy(header map[string]string, timeout time.Duration, rateLimiter *RateLimiter) *Proxy {
	if rateLimiter == nil {
		rateLimiter = NewRateLimiter(nil, nil)
	}
	return &Proxy{header: header, client: &http.Client{}, timeout: timeout, rateLimiter: rateLimiter}
}

// Make a GET request to the provided url using the default timeout
func (proxy *Proxy) Request(ctx context.Context, url string) ([]byte, error) {
	return proxy.RequestTimeout(ctx, url, proxy.timeout)
}

// Make a GET request to the provided url. The request waits for the
// rate limiter and is cancelled once the timeout expires
func (proxy *Proxy) RequestTimeout(ctx context.Context, url string, timeout time.Duration) ([]byte, error) {

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	// ask for permission to execute the request
	// and wait if necessary
	if err := proxy.rateLimiter.Wait(ctx); err != nil {
		log.Warn().Msg("Rate limiter is not allowing the request")
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.StatusRateLimit).Inc()
		return nil, err
	}

	// Create the request and add the header
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request for url %s: %w", url, err)
	}
	for key, value := range proxy.header {
		request.Header.Set(key, value)
	}

	// Perform the request
	log.Debug().Msg(fmt.Sprintf("Requesting to url %s", url))
	res, err := proxy.client.Do(request)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(metrics.StatusTransport).Inc()
		return nil, fmt.Errorf("could not perform request to %s: %w", url, err)
	}
	defer res.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues(strconv.Itoa(res.StatusCode)).Inc()

	if message, ok := messages[res.StatusCode]; ok {
		log.Debug().Msg(fmt.Sprintf("%d %s", res.StatusCode, message))
	} else {
		log.Error().Msg(fmt.Sprintf("Status code of request (%d) is not understood", res.StatusCode))
	}

	switch res.StatusCode {
	case OK:
		// Read the response
		stream, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, fmt.Errorf("could not extract the response for url %s: %w", url, err)
		}
		return stream, nil
	case RATE_LIMIT_EXCEEDED:
		proxy.rateLimiter.ReceivedRateLimit()
		return nil, &StatusError{Url: url, StatusCode: res.StatusCode}
	default:
		return nil, &StatusError{Url: url, StatusCode: res.StatusCode}
	}
}
