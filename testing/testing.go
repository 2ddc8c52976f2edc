// SPDX-License-Identifier: ice License 1.0

package testing

import (
	"testing"
	stdlibtime "time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

const (
	eventuallyTick = 10 * stdlibtime.Millisecond
)

func GIVEN(_ string, logic func()) {
	logic()
}

func WHEN(_ string, logic func()) {
	logic()
}

func THEN(logic func()) {
	logic()
}

func IT(_ string, logic func()) {
	logic()
}

func AND(_ string, logic func()) {
	logic()
}

// Eventually fails tb if condition doesn't hold within timeout.
func Eventually(tb testing.TB, timeout stdlibtime.Duration, condition func() bool, msgAndArgs ...any) {
	tb.Helper()
	require.Eventually(tb, condition, timeout, eventuallyTick, msgAndArgs...)
}

// Never fails tb if condition holds at any point during the window.
func Never(tb testing.TB, window stdlibtime.Duration, condition func() bool, msgAndArgs ...any) {
	tb.Helper()
	require.Never(tb, condition, window, eventuallyTick, msgAndArgs...)
}

func MustMarshal(tb testing.TB, val any) string {
	tb.Helper()
	valueBytes, err := json.Marshal(val)
	require.NoError(tb, err)

	return string(valueBytes)
}

func MustUnmarshal[T any](tb testing.TB, val string) *T {
	tb.Helper()
	tt := new(T)
	require.NoError(tb, json.Unmarshal([]byte(val), tt))

	return tt
}
