// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"context"
	"strings"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"
)

// NewHTTPTransport builds a Transport posting JSON payloads to cfg.URL+cfg.Path.
// It never retries on its own.
func NewHTTPTransport(cfg *HTTPTransportConfig) Transport {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	client := req.C().
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetTimeout(timeout).
		SetUserAgent(LibraryName+"/"+LibraryVersion).
		SetCommonContentType(applicationJSON).
		SetCommonHeader(acceptHeader, applicationJSON)
	if len(cfg.Headers) > 0 {
		client = client.SetCommonHeaders(cfg.Headers)
	}

	return &httpTransport{client: client, endpoint: buildEndpoint(cfg)}
}

func buildEndpoint(cfg *HTTPTransportConfig) string {
	base := strings.TrimSuffix(strings.TrimSpace(cfg.URL), "/")
	if !strings.Contains(base, "://") {
		scheme := "https"
		if cfg.UseSSL != nil && !*cfg.UseSSL {
			scheme = "http"
		}
		base = scheme + "://" + base
	}
	path := strings.TrimSpace(cfg.Path)
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return base + path
}

func (t *httpTransport) Post(ctx context.Context, secret string, batch []*EventRecord) error {
	body, err := json.Marshal(&Payload{Secret: secret, Batch: batch})
	if err != nil {
		return errors.Wrapf(errUnencodableBatch, "%v records: %v", len(batch), err)
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader(idempotencyKeyHeader, uuid.NewString()).
		SetBodyJsonBytes(body).
		Post(t.endpoint)
	if err != nil {
		return errors.Wrapf(err, "analytics/tracking post `%v` failed, batch size: %v", t.endpoint, len(batch))
	}
	if !resp.IsSuccessState() {
		respBody, rErr := resp.ToString()
		if rErr != nil {
			respBody = "unable to read response body: " + rErr.Error()
		}
		if len(respBody) > maxErrorBodyLength {
			respBody = respBody[:maxErrorBodyLength]
		}

		return errors.Wrapf(&StatusError{StatusCode: resp.GetStatusCode(), Body: respBody},
			"analytics/tracking post `%v` failed, batch size: %v", t.endpoint, len(batch))
	}

	return nil
}

func (t *httpTransport) Close() error {
	t.client.GetClient().CloseIdleConnections()

	return nil
}
