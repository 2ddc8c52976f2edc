// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"strings"
	stdlibtime "time"

	"github.com/goccy/go-reflect"
	"github.com/pkg/errors"

	"github.com/ice-blockchain/beacon/terror"
	"github.com/ice-blockchain/beacon/time"
)

func DefaultValidator() Validator {
	return &defaultValidator{now: stdlibtime.Now}
}

func (*defaultValidator) Identity(sessionID, userID string) error {
	if strings.TrimSpace(sessionID) == "" && strings.TrimSpace(userID) == "" {
		return invalidArgument("sessionId", "either sessionId or userId is required")
	}

	return nil
}

func (v *defaultValidator) Timestamp(ts *stdlibtime.Time) (*time.Time, error) {
	if ts == nil {
		return time.New(v.now()), nil
	}
	if parsed := time.New(*ts); parsed.Valid() {
		return parsed, nil
	}

	return nil, invalidArgument("timestamp", "timestamp %v is not a valid point in time", *ts)
}

func (*defaultValidator) EventName(event string) error {
	if strings.TrimSpace(event) == "" {
		return invalidArgument("event", "event is required")
	}

	return nil
}

func (*defaultValidator) Mapping(field string, value any) (map[string]any, error) {
	if mapping, ok := value.(map[string]any); ok || value == nil {
		cp := make(map[string]any, len(mapping))
		for k, v := range mapping {
			cp[k] = v
		}

		return cp, nil
	}
	val := reflect.ValueOf(value)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return make(map[string]any), nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Map || val.Type().Key().Kind() != reflect.String {
		return nil, invalidArgument(field, "%v must be a string keyed map, got %T", field, value)
	}
	cp := make(map[string]any, val.Len())
	for iter := val.MapRange(); iter.Next(); {
		cp[iter.Key().String()] = iter.Value().Interface()
	}

	return cp, nil
}

func invalidArgument(field, format string, args ...any) error {
	return terror.New(errors.Wrapf(ErrInvalidArgument, format, args...), map[string]any{"field": field})
}
