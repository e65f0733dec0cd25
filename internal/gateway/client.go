package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/eduhub/edupay/internal/errs"
)

// httpDoer lets tests substitute the transport; adapters share one bounded
// client so a hung provider cannot pin a request forever.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// doJSON sends a JSON request and decodes the JSON response body into a
// generic map. Non-2xx responses are still decoded so callers can surface
// the provider's own error text; the status code is returned either way.
func doJSON(ctx context.Context, client httpDoer, method, url string, headers map[string]string, body any) (int, map[string]any, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, errs.Wrap(errs.KindUpstream, "provider request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, errs.Wrap(errs.KindUpstream, "reading provider response", err)
	}
	out := map[string]any{}
	if len(raw) > 0 {
		// Providers occasionally answer errors with HTML; treat that as an
		// upstream fault rather than a decode bug on our side.
		if err := json.Unmarshal(raw, &out); err != nil {
			return resp.StatusCode, nil, errs.Wrap(errs.KindUpstream, "provider returned non-JSON response", err)
		}
	}
	return resp.StatusCode, out, nil
}

func str(m map[string]any, key string) string {
	switch t := m[key].(type) {
	case string:
		return t
	case float64:
		b, _ := json.Marshal(t)
		return string(b)
	}
	return ""
}
