// SPDX-License-Identifier: ice License 1.0

package terror

// Public API.

type (
	// Err decorates an error with structured data, without breaking errors.Is/errors.As on the wrapped chain.
	Err struct {
		error
		Data map[string]any `json:"data"`
	}
)
