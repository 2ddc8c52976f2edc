// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	stdlibtime "time"

	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/beacon/analytics/tracking/internal/queue"
	"github.com/ice-blockchain/beacon/time"
)

// Public API.

const (
	LibraryName       = "beacon-go"
	LibraryVersion    = "1.0.0"
	LibraryContextKey = "library"

	ActionTrack    Action = "track"
	ActionIdentify Action = "identify"

	DefaultMaxQueueSize    = 10_000
	DefaultMaxBatchSize    = 100
	DefaultFlushAt         = 20
	DefaultFlushInterval   = 10 * stdlibtime.Second
	DefaultShutdownTimeout = 10 * stdlibtime.Second
	DefaultRequestTimeout  = 25 * stdlibtime.Second
)

// .
var (
	ErrSecretNotConfigured = errors.New("analytics/tracking secret is not configured")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidConfig       = errors.New("invalid analytics/tracking config")
	ErrDeliveryFailed      = errors.New("batch delivery failed")
	ErrClientClosed        = errors.New("analytics/tracking client is closed")
)

type (
	Action string
	// Client buffers events in memory and delivers them in batches from a single background goroutine.
	// Track and Identify never wait on network I/O; their bool result tells whether the event was queued
	// (false means it was dropped because the queue is full).
	Client interface {
		io.Closer

		Track(ctx context.Context, opts *TrackOptions) (bool, error)
		Identify(ctx context.Context, opts *IdentifyOptions) (bool, error)
		QueuedCount() int
		// Flush delivers everything queued so far and waits until it's done, or until ctx is.
		Flush(ctx context.Context) error
	}
	TrackOptions struct {
		Timestamp  *stdlibtime.Time
		Context    map[string]any
		Properties map[string]any
		SessionID  string
		UserID     string
		Event      string
	}
	IdentifyOptions struct {
		Timestamp *stdlibtime.Time
		Context   map[string]any
		// Traits must be a string keyed map, if set.
		Traits    any
		SessionID string
		UserID    string
	}
	// EventRecord is what gets queued and posted. It must not be modified once it's built.
	EventRecord struct {
		Timestamp  *time.Time     `json:"timestamp"`
		Context    map[string]any `json:"context"`
		Properties map[string]any `json:"properties,omitempty"`
		Traits     map[string]any `json:"traits,omitempty"`
		Action     Action         `json:"action"`
		SessionID  string         `json:"sessionId,omitempty"`
		UserID     string         `json:"userId,omitempty"`
		Event      string         `json:"event,omitempty"`
	}
	// Payload is the request body posted to the collection endpoint.
	Payload struct {
		Secret string         `json:"secret"`
		Batch  []*EventRecord `json:"batch"`
	}
	Transport interface {
		// Post performs exactly one delivery attempt of the batch.
		Post(ctx context.Context, secret string, batch []*EventRecord) error
	}
	Validator interface {
		Identity(sessionID, userID string) error
		// Timestamp returns the current time if ts is nil.
		Timestamp(ts *stdlibtime.Time) (*time.Time, error)
		EventName(event string) error
		// Mapping returns a copy of value as a map, or an error if it isn't a string keyed map.
		Mapping(field string, value any) (map[string]any, error)
	}
	// ErrorHandler receives delivery failures; the error is always a *DeliveryError.
	// It runs on the dispatcher goroutine, so it must not block on Close: Close waits for that goroutine.
	// Call Close from a new goroutine if a failure should shut the client down.
	ErrorHandler func(err error)
	DeliveryError struct {
		Cause      error
		Batch      []*EventRecord
		StatusCode int
		Attempts   int
	}
	// StatusError is returned by transports when the endpoint answered with a non 2xx status.
	StatusError struct {
		Body       string
		StatusCode int
	}
	Config struct {
		OnError         ErrorHandler        `yaml:"-" mapstructure:"-"`
		Transport       Transport           `yaml:"-" mapstructure:"-"`
		Validator       Validator           `yaml:"-" mapstructure:"-"`
		Secret          string              `yaml:"secret" mapstructure:"secret"`
		HTTP            HTTPTransportConfig `yaml:"transport" mapstructure:"transport"`
		Retry           RetryConfig         `yaml:"retry" mapstructure:"retry"`
		MaxQueueSize    int                 `yaml:"maxQueueSize" mapstructure:"maxQueueSize"`
		MaxBatchSize    int                 `yaml:"maxBatchSize" mapstructure:"maxBatchSize"`
		// FlushAt is the queue length that triggers a delivery before FlushInterval elapses.
		FlushAt         int                 `yaml:"flushAt" mapstructure:"flushAt"`
		FlushInterval   stdlibtime.Duration `yaml:"flushInterval" mapstructure:"flushInterval"`
		ShutdownTimeout stdlibtime.Duration `yaml:"shutdownTimeout" mapstructure:"shutdownTimeout"`
	}
	HTTPTransportConfig struct {
		Headers map[string]string `yaml:"headers" mapstructure:"headers"`
		// UseSSL defaults to true; it's ignored if URL already has a scheme.
		UseSSL         *bool               `yaml:"useSsl" mapstructure:"useSsl"`
		URL            string              `yaml:"url" mapstructure:"url"`
		Path           string              `yaml:"path" mapstructure:"path"`
		RequestTimeout stdlibtime.Duration `yaml:"requestTimeout" mapstructure:"requestTimeout"`
	}
	// RetryConfig is disabled by default: a failed batch is reported and dropped right away.
	RetryConfig struct {
		MaxRetries      uint64              `yaml:"maxRetries" mapstructure:"maxRetries"`
		InitialInterval stdlibtime.Duration `yaml:"initialInterval" mapstructure:"initialInterval"`
		MaxInterval     stdlibtime.Duration `yaml:"maxInterval" mapstructure:"maxInterval"`
		MaxElapsedTime  stdlibtime.Duration `yaml:"maxElapsedTime" mapstructure:"maxElapsedTime"`
	}
)

// Private API.

const (
	secretEnvName = "ANALYTICS_TRACKING_SECRET"

	applicationJSON      = "application/json"
	acceptHeader         = "Accept"
	idempotencyKeyHeader = "Idempotency-Key"
	maxErrorBodyLength   = 512

	defaultRetryInitialInterval = 300 * stdlibtime.Millisecond
	defaultRetryMaxInterval     = 2 * stdlibtime.Second
	defaultRetryMaxElapsedTime  = 30 * stdlibtime.Second
	retryRandomizationFactor    = 0.5
	retryMultiplier             = 2.5
)

var errUnencodableBatch = errors.New("batch can't be encoded as JSON")

type (
	tracking struct {
		cfg        *Config
		queue      *queue.Bounded[*EventRecord]
		builder    *eventBuilder
		dispatcher *dispatcher
		closeOnce  sync.Once
		closeErr   error
		closed     atomic.Bool
	}
	eventBuilder struct {
		validator Validator
	}
	defaultValidator struct {
		now func() stdlibtime.Time
	}
	dispatcher struct {
		ctx           context.Context //nolint:containedctx // It's cancelled when shutdown exceeds its deadline.
		cancel        context.CancelFunc
		cfg           *Config
		queue         *queue.Bounded[*EventRecord]
		transport     Transport
		onError       ErrorHandler
		flushRequests chan chan struct{}
		stop          chan struct{}
		done          chan struct{}
	}
	httpTransport struct {
		client   *req.Client
		endpoint string
	}
	config struct {
		Tracking Config `yaml:"beacon/analytics/tracking" mapstructure:"beacon/analytics/tracking"` //nolint:tagliatelle // Nope.
	}
)
