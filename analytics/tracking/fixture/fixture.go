// SPDX-License-Identifier: ice License 1.0

package fixture

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	stdlibtime "time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// NewCollector starts a Collector answering 200 to everything; it's shut down when tb finishes.
func NewCollector(tb testing.TB) *Collector {
	tb.Helper()
	gin.SetMode(gin.TestMode)
	col := new(Collector)
	router := gin.New()
	router.POST(routePattern, col.handle)
	col.server = httptest.NewServer(router)
	tb.Cleanup(col.server.Close)

	return col
}

func (c *Collector) URL() string {
	return c.server.URL
}

// RespondWith queues status codes for the next requests, one per request; 200 is used once they're exhausted.
func (c *Collector) RespondWith(statusCodes ...int) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.responses = append(c.responses, statusCodes...)
}

func (c *Collector) SetLatency(latency stdlibtime.Duration) {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.latency = latency
}

func (c *Collector) Requests() []*Request {
	c.mx.Lock()
	defer c.mx.Unlock()

	return append(make([]*Request, 0, len(c.requests)), c.requests...)
}

func (c *Collector) Batches() [][]map[string]any {
	requests := c.Requests()
	batches := make([][]map[string]any, 0, len(requests))
	for _, r := range requests {
		batches = append(batches, r.Payload.Batch)
	}

	return batches
}

// Records flattens every received batch, in arrival order.
func (c *Collector) Records() []map[string]any {
	var records []map[string]any
	for _, batch := range c.Batches() {
		records = append(records, batch...)
	}

	return records
}

func (c *Collector) handle(ctx *gin.Context) {
	body, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.String(http.StatusBadRequest, err.Error())

		return
	}
	var payload Payload
	if err = json.Unmarshal(body, &payload); err != nil {
		ctx.String(http.StatusBadRequest, err.Error())

		return
	}
	c.mx.Lock()
	c.requests = append(c.requests, &Request{Header: ctx.Request.Header.Clone(), Path: ctx.Request.URL.Path, Payload: payload})
	statusCode := http.StatusOK
	if len(c.responses) > 0 {
		statusCode, c.responses = c.responses[0], c.responses[1:]
	}
	latency := c.latency
	c.mx.Unlock()
	if latency > 0 {
		select {
		case <-stdlibtime.After(latency):
		case <-ctx.Request.Context().Done():
		}
	}
	if statusCode >= http.StatusMultipleChoices {
		ctx.JSON(statusCode, gin.H{"error": http.StatusText(statusCode)})

		return
	}
	ctx.JSON(statusCode, gin.H{"success": true})
}

