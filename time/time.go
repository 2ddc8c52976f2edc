// SPDX-License-Identifier: ice License 1.0

package time

import (
	"strconv"
	stdlibtime "time"

	"github.com/pkg/errors"
)

func Now() *Time {
	now := stdlibtime.Now()

	return &Time{
		Time: &now,
	}
}

func New(time stdlibtime.Time) *Time {
	return &Time{
		Time: &time,
	}
}

// Valid reports whether t holds a non zero time that can be rendered as RFC 3339.
func (t *Time) Valid() bool {
	return t != nil && t.Time != nil && !t.IsZero() && t.Year() >= 0 && t.Year() <= maxSerializableYear
}

// ISO8601 renders t as RFC 3339 with nanoseconds, keeping its UTC offset.
func (t *Time) ISO8601() string {
	if t == nil || t.Time == nil {
		return ""
	}

	return t.Format(stdlibtime.RFC3339Nano)
}

func (t *Time) MarshalText() ([]byte, error) {
	return []byte(t.ISO8601()), nil
}

func (t *Time) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return []byte("null"), nil
	}

	return []byte(strconv.Quote(t.ISO8601())), nil
}

func (t *Time) UnmarshalJSON(bytes []byte) error {
	if t.unmarshallUint64(bytes) {
		return nil
	}

	return t.unmarshallString(bytes)
}

func (t *Time) unmarshallUint64(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	for _, b := range data {
		if b < '0' || b > '9' {
			return false
		}
	}
	millisOrNanos, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return false
	}
	t.Time = new(stdlibtime.Time)
	if len(data) == millisecondTimestampDigits {
		*t.Time = stdlibtime.UnixMilli(millisOrNanos).UTC()
	} else {
		*t.Time = stdlibtime.Unix(0, millisOrNanos).UTC()
	}

	return true
}

func (t *Time) unmarshallString(bytes []byte) error {
	data := string(bytes)
	if data == "null" || data == `""` || data == "" {
		return nil
	}
	unquoted, err := strconv.Unquote(data)
	if err != nil {
		return errors.Wrapf(err, "invalid time format: %v", data)
	}
	time, err := stdlibtime.Parse(stdlibtime.RFC3339Nano, unquoted)
	if err != nil {
		return errors.Wrapf(err, "invalid time format: %v", data)
	}
	t.Time = &time

	return nil
}
