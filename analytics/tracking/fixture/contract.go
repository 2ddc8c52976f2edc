// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"net/http"
	"net/http/httptest"
	"sync"
	stdlibtime "time"
)

// Public API.

type (
	// Collector is an in-process collection endpoint that records every batch posted to it.
	Collector struct {
		server    *httptest.Server
		requests  []*Request
		responses []int
		latency   stdlibtime.Duration
		mx        sync.Mutex
	}
	Request struct {
		Header  http.Header
		Path    string
		Payload Payload
	}
	// Payload is the decoded request body. Records are kept generic, exactly as they were on the wire.
	Payload struct {
		Secret string           `json:"secret"`
		Batch  []map[string]any `json:"batch"`
	}
)

// Private API.

const (
	routePattern = "/*path"
)
