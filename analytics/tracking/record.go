// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// MarshalJSON renders the flat wire representation: the action specific payload is always present,
// even if empty, and the other action's fields are never.
func (r *EventRecord) MarshalJSON() ([]byte, error) {
	wire := make(map[string]any, 1+1+1+1+1+1+1) //nolint:mnd,gomnd // action,sessionId,userId,context,timestamp + 2 payload fields.
	wire["action"] = r.Action
	wire["context"] = orEmpty(r.Context)
	wire["timestamp"] = r.Timestamp
	if r.SessionID != "" {
		wire["sessionId"] = r.SessionID
	}
	if r.UserID != "" {
		wire["userId"] = r.UserID
	}
	switch r.Action {
	case ActionTrack:
		wire["event"] = r.Event
		wire["properties"] = orEmpty(r.Properties)
	case ActionIdentify:
		wire["traits"] = orEmpty(r.Traits)
	default:
		return nil, errors.Errorf("unsupported action %q", r.Action)
	}
	bytes, err := json.Marshal(wire)

	return bytes, errors.Wrapf(err, "failed to marshal %v record", r.Action)
}

func orEmpty(mapping map[string]any) map[string]any {
	if mapping == nil {
		return map[string]any{}
	}

	return mapping
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%v: %v records, %v attempt(s), status %v: %v", ErrDeliveryFailed, len(e.Batch), e.Attempts, e.StatusCode, e.Cause)
	}

	return fmt.Sprintf("%v: %v records, %v attempt(s): %v", ErrDeliveryFailed, len(e.Batch), e.Attempts, e.Cause)
}

func (e *DeliveryError) Unwrap() []error {
	return []error{ErrDeliveryFailed, e.Cause}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %v, response: %v", e.StatusCode, e.Body)
}

func newDeliveryError(batch []*EventRecord, attempts int, cause error) *DeliveryError {
	dErr := &DeliveryError{Cause: cause, Batch: batch, Attempts: attempts}
	var sErr *StatusError
	if errors.As(cause, &sErr) {
		dErr.StatusCode = sErr.StatusCode
	}

	return dErr
}
