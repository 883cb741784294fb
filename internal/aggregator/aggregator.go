// internal/aggregator/aggregator.go
package aggregator

import (
	"context"
	"errors"
	"io"
	"time"

	"aggregation-gateway/internal/common/config"
	apperrors "aggregation-gateway/internal/common/errors"
	"aggregation-gateway/internal/common/logger"
	"aggregation-gateway/internal/common/metrics"
	"aggregation-gateway/internal/common/observability"
	"aggregation-gateway/internal/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

const (
	ModeStreaming = config.ModeStreaming
	ModeBuffered  = config.ModeBuffered
)

// ErrAggregateAborted is returned when an internal member failed after its
// first byte was written. The object is left unterminated.
var ErrAggregateAborted = errors.New("aggregate aborted after an internal member was interrupted")

type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

type Options struct {
	ChunkSize      int
	MaxConcurrency int
}

// Aggregator composes sub-responses into one JSON object.
type Aggregator struct {
	fetcher Fetcher
	logger  Logger
	obs     *observability.Observability
	opts    Options
}

func New(fetcher Fetcher, log Logger, obs *observability.Observability, opts Options) *Aggregator {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if obs == nil {
		obs = observability.Noop()
	}
	return &Aggregator{
		fetcher: fetcher,
		logger:  log,
		obs:     obs,
		opts:    opts,
	}
}

// Aggregate fetches every target and writes the aggregate object to w:
// one at a time in streaming mode or all at once in buffered mode. Sub-request
// failures become error members and never stop the aggregate. The returned
// error is non-nil only when output had to stop early.
func (a *Aggregator) Aggregate(ctx context.Context, w io.Writer, targets []models.ResolvedTarget, mode string) error {
	if mode != ModeBuffered {
		mode = ModeStreaming
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ctx, span := observability.StartSpan(ctx, "aggregate",
		attribute.String("mode", mode),
		attribute.Int("targets", len(targets)),
	)
	defer span.End()

	metrics.AggregationsActive.Inc()
	defer metrics.AggregationsActive.Dec()

	start := time.Now()
	enc := NewEncoder(w, a.opts.ChunkSize)

	var err error
	if mode == ModeBuffered {
		err = a.aggregateBuffered(ctx, enc, targets)
	} else {
		err = a.aggregateStreaming(ctx, enc, targets)
	}

	status := "ok"
	if err != nil {
		status = "aborted"
		if errors.Is(err, ErrClientGone) {
			status = "client_gone"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
	}
	a.obs.RecordAggregation(ctx, mode, status, len(targets), time.Since(start))
	return err
}

func (a *Aggregator) aggregateStreaming(ctx context.Context, enc *Encoder, targets []models.ResolvedTarget) error {
	if err := enc.BeginObject(); err != nil {
		return err
	}
	for _, target := range targets {
		if err := a.streamOne(ctx, enc, target); err != nil {
			return err
		}
	}
	return enc.EndObject()
}

// streamOne fetches and writes one member. Only errors that end the whole
// aggregate are returned.
func (a *Aggregator) streamOne(ctx context.Context, enc *Encoder, target models.ResolvedTarget) (err error) {
	ctx, span := observability.StartSpan(ctx, "subrequest",
		attribute.String("name", target.Name),
		attribute.Bool("internal", target.IsInternal),
	)
	defer span.End()

	label := metrics.TargetLabel(target.IsInternal)
	start := time.Now()
	outcomeLabel := "success"
	var outcome *models.Outcome

	defer func() {
		if recovered := recover(); recovered != nil {
			outcomeLabel = "fault"
			err = a.recoverMember(enc, target, apperrors.FromPanic(recovered))
		}
		if outcome != nil {
			_ = outcome.Close()
		}
		metrics.SubRequestsTotal.WithLabelValues(label, outcomeLabel).Inc()
		metrics.SubRequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	outcome = a.fetcher.Fetch(ctx, target, ModeStreaming)
	if outcome == nil {
		outcome = models.Failed(faultFailure())
	}
	if !outcome.OK() {
		outcomeLabel = failureLabel(outcome)
		a.logFailure(target, outcome)
	}

	written, werr := enc.WriteMember(target.Name, outcome, target.IsInternal)
	metrics.StreamedBytesTotal.WithLabelValues(label).Add(float64(written))
	if werr == nil {
		return nil
	}

	var interrupted *InterruptedError
	switch {
	case errors.Is(werr, ErrClientGone):
		outcomeLabel = "client_gone"
		a.logger.Warn("client went away during aggregation", map[string]interface{}{
			"name":  target.Name,
			"error": werr.Error(),
		})
		return werr
	case errors.As(werr, &interrupted):
		outcomeLabel = "truncated"
		span.RecordError(werr)
		stdErr := apperrors.NewStreamInterruptedError(target.URL, interrupted.Err)
		if interrupted.Internal {
			a.logger.Error("internal member interrupted, aborting aggregate", map[string]interface{}{
				"name":      target.Name,
				"errorCode": string(stdErr.Code),
				"details":   stdErr.Details,
				"bytes":     written,
			})
			return ErrAggregateAborted
		}
		a.logger.Warn("external member truncated", map[string]interface{}{
			"name":      target.Name,
			"errorCode": string(stdErr.Code),
			"details":   stdErr.Details,
			"bytes":     written,
		})
		return nil
	default:
		outcomeLabel = "fault"
		return a.recoverMember(enc, target, apperrors.NewInternalFaultError(werr))
	}
}

// recoverMember handles a fault while processing one entry. Before the
// member started an error member replaces it; an open external member is
// closed as truncated; an open internal member aborts the aggregate.
func (a *Aggregator) recoverMember(enc *Encoder, target models.ResolvedTarget, fault *apperrors.StandardError) error {
	a.logger.Error("fault while processing sub-request", map[string]interface{}{
		"name":          target.Name,
		"url":           target.URL,
		"errorCode":     string(fault.Code),
		"details":       fault.Details,
		"errorCategory": apperrors.GetErrorCategory(fault.Code),
	})

	open, internal := enc.MemberOpen()
	switch {
	case !open:
		_, err := enc.WriteMember(target.Name, models.Failed(faultFailure()), target.IsInternal)
		return err
	case internal:
		return ErrAggregateAborted
	default:
		return enc.CloseTruncated()
	}
}

func (a *Aggregator) aggregateBuffered(ctx context.Context, enc *Encoder, targets []models.ResolvedTarget) error {
	results := make([]models.OutputMember, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	if a.opts.MaxConcurrency > 0 {
		g.SetLimit(a.opts.MaxConcurrency)
	}
	for i, target := range targets {
		g.Go(func() error {
			results[i] = a.bufferOne(gctx, target)
			return nil
		})
	}
	_ = g.Wait()

	members := models.NewOrderedMembers(len(results))
	for _, m := range results {
		if !members.Add(m) {
			a.logger.Warn("duplicate member name skipped", map[string]interface{}{"name": m.Name})
		}
	}

	if err := enc.BeginObject(); err != nil {
		return err
	}
	if err := members.Each(enc.WriteOutputMember); err != nil {
		return err
	}
	return enc.EndObject()
}

// bufferOne fetches one target completely and materializes its member.
func (a *Aggregator) bufferOne(ctx context.Context, target models.ResolvedTarget) (member models.OutputMember) {
	ctx, span := observability.StartSpan(ctx, "subrequest",
		attribute.String("name", target.Name),
		attribute.Bool("internal", target.IsInternal),
	)
	defer span.End()

	label := metrics.TargetLabel(target.IsInternal)
	start := time.Now()
	outcomeLabel := "success"

	member = models.OutputMember{Name: target.Name, IsInternal: target.IsInternal}

	defer func() {
		if recovered := recover(); recovered != nil {
			outcomeLabel = "fault"
			fault := apperrors.FromPanic(recovered)
			a.logger.Error("fault while processing sub-request", map[string]interface{}{
				"name":      target.Name,
				"url":       target.URL,
				"errorCode": string(fault.Code),
				"details":   fault.Details,
			})
			errMember := Classify(faultFailure(), target.IsInternal)
			member = models.OutputMember{Name: target.Name, IsInternal: target.IsInternal, Error: &errMember}
		}
		metrics.SubRequestsTotal.WithLabelValues(label, outcomeLabel).Inc()
		metrics.SubRequestDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	outcome := a.fetcher.Fetch(ctx, target, ModeBuffered)
	if outcome == nil {
		outcome = models.Failed(faultFailure())
	}
	defer outcome.Close()

	if !outcome.OK() {
		outcomeLabel = failureLabel(outcome)
		a.logFailure(target, outcome)
		errMember := Classify(outcome.Failure, target.IsInternal)
		member.Error = &errMember
		return member
	}

	data := outcome.Data
	if outcome.Body != nil {
		body, err := io.ReadAll(outcome.Body)
		if err != nil {
			failure := FailureFromError(err)
			outcomeLabel = failureLabel(models.Failed(failure))
			errMember := Classify(failure, target.IsInternal)
			member.Error = &errMember
			return member
		}
		data = body
	}
	metrics.StreamedBytesTotal.WithLabelValues(label).Add(float64(len(data)))
	member.Data = data
	return member
}

func (a *Aggregator) logFailure(target models.ResolvedTarget, outcome *models.Outcome) {
	if outcome == nil || outcome.Failure == nil {
		return
	}
	f := outcome.Failure
	fields := map[string]interface{}{
		"name":          target.Name,
		"url":           target.URL,
		"errorCode":     string(f.Code),
		"message":       f.Message,
		"errorCategory": apperrors.GetErrorCategory(f.Code),
	}
	if f.Status != nil {
		fields["status"] = *f.Status
	}
	a.logger.Debug("sub-request failed", fields)
}

func failureLabel(outcome *models.Outcome) string {
	if outcome == nil || outcome.Failure == nil {
		return "fault"
	}
	switch outcome.Failure.Code {
	case apperrors.ErrCodeTimeout:
		return "timeout"
	case apperrors.ErrCodeUpstreamHTTPError:
		return "http_error"
	case apperrors.ErrCodeNetworkError:
		return "network_error"
	default:
		return "fault"
	}
}
