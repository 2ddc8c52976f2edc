// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"context"
	"io"
	"strings"

	"dario.cat/mergo"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/beacon/analytics/tracking/internal/queue"
	appcfg "github.com/ice-blockchain/beacon/config"
	"github.com/ice-blockchain/beacon/log"
)

func New(applicationYAMLKey string) Client {
	var cfg config
	appcfg.MustLoadFromKey(applicationYAMLKey, &cfg)
	if strings.TrimSpace(cfg.Tracking.Secret) == "" {
		cfg.Tracking.Secret = appcfg.Env(applicationYAMLKey, secretEnvName)
	}
	cl, err := NewWithConfig(&cfg.Tracking)
	log.Panic(errors.Wrapf(err, "failed to init analytics/tracking client for %v", applicationYAMLKey)) //nolint:revive // That's intended.

	return cl
}

// NewWithConfig starts a client with its own queue and dispatcher goroutine; zero values in cfg are replaced by defaults.
// A missing secret is not a construction error: every Track/Identify call reports ErrSecretNotConfigured instead.
func NewWithConfig(cfg *Config) (Client, error) {
	if cfg == nil {
		cfg = new(Config)
	}
	effective := *cfg
	if cfg.HTTP.UseSSL != nil {
		useSSL := *cfg.HTTP.UseSSL
		effective.HTTP.UseSSL = &useSSL
	}
	if err := mergo.Merge(&effective, defaultConfig(), mergo.WithoutDereference); err != nil {
		return nil, errors.Wrap(err, "failed to apply analytics/tracking defaults")
	}
	if effective.HTTP.UseSSL == nil {
		useSSL := true
		effective.HTTP.UseSSL = &useSSL
	}
	if err := effective.validate(); err != nil {
		return nil, err
	}
	effective.Secret = strings.TrimSpace(effective.Secret)
	if effective.Secret == "" {
		log.Warn("analytics/tracking secret is not configured, every event will be rejected")
	}
	if effective.OnError == nil {
		effective.OnError = func(err error) { log.Error(err) }
	}
	if effective.Transport == nil {
		effective.Transport = NewHTTPTransport(&effective.HTTP)
	}
	q := queue.New[*EventRecord](effective.MaxQueueSize, effective.FlushAt)
	cl := &tracking{
		cfg:        &effective,
		queue:      q,
		builder:    newEventBuilder(effective.Validator),
		dispatcher: newDispatcher(&effective, q),
	}
	go cl.dispatcher.run()

	return cl, nil
}

func defaultConfig() Config {
	return Config{
		MaxQueueSize:    DefaultMaxQueueSize,
		MaxBatchSize:    DefaultMaxBatchSize,
		FlushAt:         DefaultFlushAt,
		FlushInterval:   DefaultFlushInterval,
		ShutdownTimeout: DefaultShutdownTimeout,
		HTTP: HTTPTransportConfig{
			RequestTimeout: DefaultRequestTimeout,
		},
		Retry: RetryConfig{
			InitialInterval: defaultRetryInitialInterval,
			MaxInterval:     defaultRetryMaxInterval,
			MaxElapsedTime:  defaultRetryMaxElapsedTime,
		},
	}
}

func (cfg *Config) validate() error {
	for name, val := range map[string]int64{
		"maxQueueSize":             int64(cfg.MaxQueueSize),
		"maxBatchSize":             int64(cfg.MaxBatchSize),
		"flushAt":                  int64(cfg.FlushAt),
		"flushInterval":            int64(cfg.FlushInterval),
		"shutdownTimeout":          int64(cfg.ShutdownTimeout),
		"transport.requestTimeout": int64(cfg.HTTP.RequestTimeout),
		"retry.initialInterval":    int64(cfg.Retry.InitialInterval),
		"retry.maxInterval":        int64(cfg.Retry.MaxInterval),
		"retry.maxElapsedTime":     int64(cfg.Retry.MaxElapsedTime),
	} {
		if val <= 0 {
			return errors.Wrapf(ErrInvalidConfig, "%v must be positive, got %v", name, val)
		}
	}
	if cfg.Transport == nil && strings.TrimSpace(cfg.HTTP.URL) == "" {
		return errors.Wrap(ErrInvalidConfig, "transport.url is required")
	}

	return nil
}

func (t *tracking) Track(ctx context.Context, opts *TrackOptions) (bool, error) {
	if err := t.precheck(ctx); err != nil {
		return false, err
	}
	record, err := t.builder.buildTrack(opts)
	if err != nil {
		return false, err
	}

	return t.enqueue(record)
}

func (t *tracking) Identify(ctx context.Context, opts *IdentifyOptions) (bool, error) {
	if err := t.precheck(ctx); err != nil {
		return false, err
	}
	record, err := t.builder.buildIdentify(opts)
	if err != nil {
		return false, err
	}

	return t.enqueue(record)
}

func (t *tracking) precheck(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "context failed")
	}
	if t.closed.Load() {
		return ErrClientClosed
	}
	if t.cfg.Secret == "" {
		return ErrSecretNotConfigured
	}

	return nil
}

func (t *tracking) enqueue(record *EventRecord) (bool, error) {
	if t.queue.Enqueue(record) {
		return true, nil
	}
	if t.queue.Closed() {
		return false, ErrClientClosed
	}
	log.Debug("analytics/tracking queue is full, record dropped",
		"action", record.Action, "event", record.Event, "capacity", t.queue.Cap())

	return false, nil
}

func (t *tracking) QueuedCount() int {
	return t.queue.Len()
}

func (t *tracking) Flush(ctx context.Context) error {
	if ctx.Err() != nil {
		return errors.Wrap(ctx.Err(), "context failed")
	}
	if t.closed.Load() {
		return ErrClientClosed
	}

	return t.dispatcher.flush(ctx)
}

func (t *tracking) Close() error {
	t.closeOnce.Do(func() {
		log.Info("closing analytics/tracking client...", "queued", t.queue.Len())
		t.closed.Store(true)
		t.queue.Close()
		var errs []error
		if err := t.dispatcher.shutdown(t.cfg.ShutdownTimeout); err != nil {
			errs = append(errs, errors.Wrap(err, "analytics/tracking dispatcher shutdown failed"))
		}
		if closer, ok := t.cfg.Transport.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, errors.Wrap(err, "failed to close analytics/tracking transport"))
			}
		}
		t.closeErr = multierror.Append(nil, errs...).ErrorOrNil()
		log.Info("closing analytics/tracking client completed")
	})

	return t.closeErr
}
