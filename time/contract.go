// SPDX-License-Identifier: ice License 1.0

package time

import (
	stdlibtime "time"
)

// Public API.

type (
	// Time keeps the location it was created with, so serialization preserves the original UTC offset.
	Time struct {
		*stdlibtime.Time
	}
)

// Private API.

const (
	millisecondTimestampDigits = 13
	maxSerializableYear        = 9999
)

var (
	_ interface{ MarshalJSON() ([]byte, error) } = (*Time)(nil)
	_ interface{ UnmarshalJSON([]byte) error }   = (*Time)(nil)
	_ interface{ MarshalText() ([]byte, error) } = (*Time)(nil)
)
