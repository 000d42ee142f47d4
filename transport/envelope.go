package transport

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// envelopeProbe detects the backend wrapper without committing to a payload
// shape. Pointers distinguish an absent key from a zero value.
type envelopeProbe struct {
	Status  *int            `json:"status"`
	Message *string         `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewEnvelopeUnwrapper builds the stage that strips the backend's uniform
// {status, message, data} wrapper from successful JSON responses, leaving
// only the data payload in the body.
//
// Responses that are not 2xx, not JSON, or not shaped like the wrapper pass
// through byte-for-byte. Downstream decoders therefore always see the bare
// payload regardless of whether a given endpoint wraps it.
func NewEnvelopeUnwrapper() Stage {
	return func(next http.RoundTripper) http.RoundTripper {
		return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.RoundTrip(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return resp, nil
			}
			ct := resp.Header.Get("Content-Type")
			if ct != "" && !strings.Contains(ct, "json") {
				return resp, nil
			}

			body, err := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if err != nil {
				return nil, err
			}

			if data, ok := unwrap(body); ok {
				body = data
			}
			resp.Body = io.NopCloser(bytes.NewReader(body))
			resp.ContentLength = int64(len(body))
			resp.Header.Set("Content-Length", strconv.Itoa(len(body)))
			return resp, nil
		})
	}
}

// unwrap extracts the data payload when body is a wrapper object. A wrapper
// must be a JSON object carrying all three of the status, message, and data
// keys; anything else is a bare payload. A literal "data": null still counts
// as present (it unmarshals to the RawMessage "null", not nil), so delete
// responses keep unwrapping to null.
func unwrap(body []byte) ([]byte, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var probe envelopeProbe
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, false
	}
	if probe.Status == nil || probe.Message == nil || probe.Data == nil {
		return nil, false
	}
	return probe.Data, true
}
