// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"context"
	"net/http"
	stdlibtime "time"

	"github.com/cenkalti/backoff/v4"
	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/beacon/analytics/tracking/internal/queue"
	"github.com/ice-blockchain/beacon/log"
)

func newDispatcher(cfg *Config, q *queue.Bounded[*EventRecord]) *dispatcher {
	ctx, cancel := context.WithCancel(context.Background())

	return &dispatcher{
		ctx:           ctx,
		cancel:        cancel,
		cfg:           cfg,
		queue:         q,
		transport:     cfg.Transport,
		onError:       cfg.OnError,
		flushRequests: make(chan chan struct{}),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

func (d *dispatcher) run() {
	log.Info("analytics/tracking dispatcher, started")
	defer log.Info("analytics/tracking dispatcher, stopped")
	defer close(d.done)
	ticker := stdlibtime.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			if queued := d.queue.Len(); queued > 0 {
				log.Info("analytics/tracking dispatcher, stopping with queued records", "queued", queued)
			}
			d.drain()

			return
		case ack := <-d.flushRequests:
			d.drain()
			close(ack)
		case <-d.queue.Ready():
			d.drain()
		case <-ticker.C:
			d.drain()
		}
	}
}

// drain delivers queued records, one batch at a time, until the queue is empty or shutdown gives up.
func (d *dispatcher) drain() {
	for d.ctx.Err() == nil {
		batch := d.queue.Dequeue(d.cfg.MaxBatchSize)
		if len(batch) == 0 {
			return
		}
		d.deliver(batch)
	}
}

func (d *dispatcher) deliver(batch []*EventRecord) {
	var attempts int
	op := func() error {
		attempts++
		err := d.transport.Post(d.ctx, d.cfg.Secret, batch)
		if err != nil && !d.retryable(err) {
			return backoff.Permanent(err)
		}

		return err
	}
	err := backoff.RetryNotify(op, d.newBackOff(), func(e error, next stdlibtime.Duration) {
		log.Error(errors.Wrapf(e, "analytics/tracking delivery of %v records failed, retrying in %v...", len(batch), next))
	})
	if err != nil {
		d.reportFailure(newDeliveryError(batch, attempts, err))

		return
	}
	log.Debug("analytics/tracking batch delivered", "records", len(batch), "attempts", attempts)
}

func (d *dispatcher) retryable(err error) bool {
	if d.ctx.Err() != nil || errors.Is(err, errUnencodableBatch) {
		return false
	}
	var (
		uvErr *json.UnsupportedValueError
		utErr *json.UnsupportedTypeError
		mErr  *json.MarshalerError
	)
	if errors.As(err, &uvErr) || errors.As(err, &utErr) || errors.As(err, &mErr) {
		return false
	}
	var sErr *StatusError
	if errors.As(err, &sErr) {
		return sErr.StatusCode == http.StatusTooManyRequests || sErr.StatusCode >= http.StatusInternalServerError
	}

	return true
}

func (d *dispatcher) newBackOff() backoff.BackOff {
	return backoff.WithContext(backoff.WithMaxRetries(&backoff.ExponentialBackOff{
		InitialInterval:     d.cfg.Retry.InitialInterval,
		RandomizationFactor: retryRandomizationFactor,
		Multiplier:          retryMultiplier,
		MaxInterval:         d.cfg.Retry.MaxInterval,
		MaxElapsedTime:      d.cfg.Retry.MaxElapsedTime,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}, d.cfg.Retry.MaxRetries), d.ctx)
}

func (d *dispatcher) reportFailure(err *DeliveryError) {
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error(errors.Errorf("[panic recover] analytics/tracking error handler: %v", recovered), "error", err.Error())
		}
	}()
	d.onError(err)
}

// flush asks the dispatcher goroutine to drain and waits for it.
func (d *dispatcher) flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case d.flushRequests <- ack:
	case <-d.done:
		return ErrClientClosed
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "flush request not accepted")
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "flush did not finish in time")
	}
}

// shutdown stops the loop and waits for its final drain; deliveries still running after timeout are cancelled.
func (d *dispatcher) shutdown(timeout stdlibtime.Duration) error {
	close(d.stop)
	timer := stdlibtime.NewTimer(timeout)
	defer timer.Stop()
	var errs []error
	select {
	case <-d.done:
	case <-timer.C:
		d.cancel()
		<-d.done
		errs = append(errs, errors.Errorf("final delivery exceeded %v", timeout))
	}
	d.cancel()
	if remaining := len(d.queue.DequeueAll()); remaining > 0 {
		errs = append(errs, errors.Errorf("%v records were dropped on shutdown", remaining))
	}

	return multierror.Append(nil, errs...).ErrorOrNil()
}
