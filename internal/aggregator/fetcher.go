// internal/aggregator/fetcher.go
package aggregator

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync/atomic"
	"time"

	apperrors "aggregation-gateway/internal/common/errors"
	httpclient "aggregation-gateway/internal/common/http"
	"aggregation-gateway/internal/models"
)

// Fetcher performs one GET per target and reports exactly one outcome.
type Fetcher interface {
	Fetch(ctx context.Context, target models.ResolvedTarget, mode string) *models.Outcome
}

// HTTPFetcher fetches targets over HTTP with a per sub-request timeout.
//
// In buffered mode the timeout bounds the whole exchange. In streaming mode
// it bounds the wait for response headers and each wait for the next body
// chunk, so a large body is never cut off while bytes keep arriving.
type HTTPFetcher struct {
	client  *httpclient.Client
	timeout time.Duration
}

func NewHTTPFetcher(client *httpclient.Client, timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{client: client, timeout: timeout}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, target models.ResolvedTarget, mode string) *models.Outcome {
	if mode == ModeBuffered {
		return f.fetchBuffered(ctx, target)
	}
	return f.fetchStreaming(ctx, target)
}

func (f *HTTPFetcher) fetchBuffered(ctx context.Context, target models.ResolvedTarget) *models.Outcome {
	reqCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	timedOut := func() bool {
		return errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	}

	resp, err := f.client.Get(reqCtx, target.URL)
	if err != nil {
		if timedOut() {
			return models.Failed(f.timeoutFailure())
		}
		return models.Failed(transportFailure(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if timedOut() {
			return models.Failed(f.timeoutFailure())
		}
		return models.Failed(transportFailure(err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.Failed(httpFailure(resp.StatusCode, body))
	}
	return models.BufferedSuccess(body)
}

func (f *HTTPFetcher) fetchStreaming(ctx context.Context, target models.ResolvedTarget) *models.Outcome {
	reqCtx, cancel := context.WithCancel(ctx)
	wd := newWatchdog(f.timeout, cancel)

	wd.arm()
	resp, err := f.client.Get(reqCtx, target.URL)
	wd.disarm()
	if err != nil {
		wd.stop()
		cancel()
		if wd.fired() {
			return models.Failed(f.timeoutFailure())
		}
		return models.Failed(transportFailure(err))
	}

	body := &watchdogBody{
		rc:      resp.Body,
		wd:      wd,
		cancel:  cancel,
		timeout: f.timeout,
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer body.Close()
		data, err := io.ReadAll(body)
		if err != nil {
			return models.Failed(FailureFromError(err))
		}
		return models.Failed(httpFailure(resp.StatusCode, data))
	}
	return models.Success(body)
}

func (f *HTTPFetcher) timeoutFailure() *models.Failure {
	return &models.Failure{
		Message: apperrors.TimeoutMessage(f.timeout),
		Code:    apperrors.ErrCodeTimeout,
	}
}

func httpFailure(status int, body []byte) *models.Failure {
	code := status
	return &models.Failure{
		Status:  &code,
		Message: string(body),
		Body:    body,
		Code:    apperrors.ErrCodeUpstreamHTTPError,
	}
}

// transportFailure keeps the transport's own text. net/http prefixes it with
// `Get "<url>": `, which is dropped.
func transportFailure(err error) *models.Failure {
	msg := err.Error()
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		msg = urlErr.Err.Error()
	}
	return &models.Failure{
		Message: msg,
		Code:    apperrors.ErrCodeNetworkError,
	}
}

// FailureFromError converts a body read error into a failure. Watchdog
// timeouts keep their timeout message.
func FailureFromError(err error) *models.Failure {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) && stdErr.Code == apperrors.ErrCodeTimeout {
		return &models.Failure{Message: stdErr.Message, Code: apperrors.ErrCodeTimeout}
	}
	return transportFailure(err)
}

// watchdog cancels a request when a single wait on the upstream outlasts
// the timeout. It is armed only while the gateway is blocked on the
// upstream, so time spent writing to a slow client does not count.
type watchdog struct {
	timer   *time.Timer
	timeout time.Duration
	expired atomic.Bool
}

func newWatchdog(timeout time.Duration, cancel context.CancelFunc) *watchdog {
	wd := &watchdog{timeout: timeout}
	wd.timer = time.AfterFunc(timeout, func() {
		wd.expired.Store(true)
		cancel()
	})
	wd.timer.Stop()
	return wd
}

func (w *watchdog) arm() {
	w.timer.Reset(w.timeout)
}

func (w *watchdog) disarm() {
	w.timer.Stop()
}

func (w *watchdog) stop() {
	w.timer.Stop()
}

func (w *watchdog) fired() bool {
	return w.expired.Load()
}

// watchdogBody is a streamed response body guarded by a watchdog.
type watchdogBody struct {
	rc      io.ReadCloser
	wd      *watchdog
	cancel  context.CancelFunc
	timeout time.Duration
}

func (b *watchdogBody) Read(p []byte) (int, error) {
	b.wd.arm()
	n, err := b.rc.Read(p)
	b.wd.disarm()
	if err != nil && err != io.EOF && b.wd.fired() {
		return n, apperrors.NewTimeoutError("", b.timeout)
	}
	return n, err
}

func (b *watchdogBody) Close() error {
	b.wd.stop()
	err := b.rc.Close()
	b.cancel()
	return err
}
