// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"context"
	"math"
	"net"
	"net/http"
	"testing"
	stdlibtime "time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ice-blockchain/beacon/analytics/tracking/fixture"
)

func TestBuildEndpoint(t *testing.T) {
	t.Parallel()
	useSSL, noSSL := true, false
	for expected, cfg := range map[string]*HTTPTransportConfig{
		"https://collector.ice.io/v1/batch": {URL: "collector.ice.io", Path: "/v1/batch"},
		"https://collector.ice.io/batch":    {URL: "collector.ice.io/", Path: "batch", UseSSL: &useSSL},
		"http://localhost:8080/v1/batch":    {URL: "localhost:8080", Path: "/v1/batch", UseSSL: &noSSL},
		"http://127.0.0.1:1234":             {URL: "http://127.0.0.1:1234", UseSSL: &useSSL},
		"https://example.com/api/v1/batch":  {URL: " https://example.com/api ", Path: "/v1/batch", UseSSL: &noSSL},
	} {
		assert.Equal(t, expected, buildEndpoint(cfg))
	}
}

func TestHTTPTransportPost(t *testing.T) {
	t.Parallel()
	collector := fixture.NewCollector(t)
	transport := NewHTTPTransport(&HTTPTransportConfig{
		URL:     collector.URL(),
		Path:    "/v1/batch",
		Headers: map[string]string{"X-Client": "beacon-test"},
	})
	defer func() { require.NoError(t, transport.(*httpTransport).Close()) }() //nolint:forcetypeassert // We know for sure.
	batch := []*EventRecord{
		mustBuildTrack(t, "abc", "Signed Up"),
		mustBuildTrack(t, "abc", "Logged In"),
	}
	ctx, cancel := context.WithTimeout(t.Context(), 5*stdlibtime.Second)
	defer cancel()
	require.NoError(t, transport.Post(ctx, "s3cr3t", batch))
	require.NoError(t, transport.Post(ctx, "s3cr3t", batch[:1]))

	requests := collector.Requests()
	require.Len(t, requests, 2)
	first := requests[0]
	assert.Equal(t, "/v1/batch", first.Path)
	assert.Equal(t, "s3cr3t", first.Payload.Secret)
	require.Len(t, first.Payload.Batch, 2)
	assert.Equal(t, "Signed Up", first.Payload.Batch[0]["event"])
	assert.Equal(t, "Logged In", first.Payload.Batch[1]["event"])
	assert.Equal(t, "track", first.Payload.Batch[0]["action"])
	assert.Equal(t, "abc", first.Payload.Batch[0]["sessionId"])
	assert.Contains(t, first.Header.Get("Content-Type"), applicationJSON)
	assert.Equal(t, applicationJSON, first.Header.Get(acceptHeader))
	assert.Equal(t, LibraryName+"/"+LibraryVersion, first.Header.Get("User-Agent"))
	assert.Equal(t, "beacon-test", first.Header.Get("X-Client"))
	assert.NotEmpty(t, first.Header.Get(idempotencyKeyHeader))
	assert.NotEqual(t, first.Header.Get(idempotencyKeyHeader), requests[1].Header.Get(idempotencyKeyHeader))
}

func TestHTTPTransportNon2xx(t *testing.T) {
	t.Parallel()
	collector := fixture.NewCollector(t)
	collector.RespondWith(http.StatusBadRequest, http.StatusServiceUnavailable)
	transport := NewHTTPTransport(&HTTPTransportConfig{URL: collector.URL()})
	ctx, cancel := context.WithTimeout(t.Context(), 5*stdlibtime.Second)
	defer cancel()
	batch := []*EventRecord{mustBuildTrack(t, "abc", "Signed Up")}

	for _, statusCode := range []int{http.StatusBadRequest, http.StatusServiceUnavailable} {
		err := transport.Post(ctx, "s3cr3t", batch)
		var sErr *StatusError
		require.ErrorAs(t, err, &sErr)
		assert.Equal(t, statusCode, sErr.StatusCode)
		assert.Contains(t, sErr.Body, http.StatusText(statusCode))
	}
	require.NoError(t, transport.Post(ctx, "s3cr3t", batch))
	assert.Len(t, collector.Requests(), 3)
}

func TestHTTPTransportRejectsUnencodableBatch(t *testing.T) {
	t.Parallel()
	collector := fixture.NewCollector(t)
	transport := NewHTTPTransport(&HTTPTransportConfig{URL: collector.URL()})
	bad := &EventRecord{Action: ActionTrack, SessionID: "abc", Event: "Scored", Properties: map[string]any{"score": math.NaN()}}
	err := transport.Post(t.Context(), "s3cr3t", []*EventRecord{mustBuildTrack(t, "abc", "Signed Up"), bad})
	require.ErrorIs(t, err, errUnencodableBatch)
	assert.Empty(t, collector.Requests())
	assert.False(t, (&dispatcher{ctx: t.Context()}).retryable(err))
}

func TestHTTPTransportConnectionFailure(t *testing.T) {
	t.Parallel()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	transport := NewHTTPTransport(&HTTPTransportConfig{URL: "http://" + addr, RequestTimeout: stdlibtime.Second})
	ctx, cancel := context.WithTimeout(t.Context(), 5*stdlibtime.Second)
	defer cancel()
	err = transport.Post(ctx, "s3cr3t", []*EventRecord{mustBuildTrack(t, "abc", "Signed Up")})
	require.Error(t, err)
	var sErr *StatusError
	assert.False(t, errors.As(err, &sErr))
}

func TestHTTPTransportHonoursContext(t *testing.T) {
	t.Parallel()
	collector := fixture.NewCollector(t)
	collector.SetLatency(2 * stdlibtime.Second)
	transport := NewHTTPTransport(&HTTPTransportConfig{URL: collector.URL()})
	ctx, cancel := context.WithTimeout(t.Context(), 100*stdlibtime.Millisecond)
	defer cancel()
	started := stdlibtime.Now()
	require.Error(t, transport.Post(ctx, "s3cr3t", []*EventRecord{mustBuildTrack(t, "abc", "Signed Up")}))
	assert.Less(t, stdlibtime.Since(started), stdlibtime.Second)
}

func mustBuildTrack(tb testing.TB, sessionID, event string) *EventRecord {
	tb.Helper()
	record, err := newEventBuilder(nil).buildTrack(&TrackOptions{SessionID: sessionID, Event: event})
	require.NoError(tb, err)

	return record
}
