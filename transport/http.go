package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/caffeineduck/goremote/payload"
	"github.com/pkg/errors"
)

// DefaultSubmitPath is where HTTPClient posts payloads unless told otherwise.
const DefaultSubmitPath = "/submit"

type errorResponse struct {
	Error string `json:"error"`
}

// SubmitHandler serves one round trip per POST: the body is a payload, the
// response an outcome. A payload that throws is still a 200; only a failure
// to run it is an error status.
func SubmitHandler(s Submitter, opts ...Option) http.HandlerFunc {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var p payload.Payload
		body := http.MaxBytesReader(w, r.Body, int64(cfg.maxMessageSize))
		if err := json.NewDecoder(body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid payload: " + err.Error()})
			return
		}
		if strings.TrimSpace(p.Source) == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "source required"})
			return
		}

		out, err := s.Submit(r.Context(), p)
		if err != nil {
			cfg.logger.Printf("transport: submit over http: %v", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// HTTPClient submits payloads to a SubmitHandler.
type HTTPClient struct {
	BaseURL string
	Path    string
	Client  *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (c *HTTPClient) Submit(ctx context.Context, p payload.Payload) (payload.Outcome, error) {
	path := c.Path
	if path == "" {
		path = DefaultSubmitPath
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(p)
	if err != nil {
		return payload.Outcome{}, errors.Wrap(err, "encode payload")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return payload.Outcome{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return payload.Outcome{}, errors.Wrapf(err, "post %s", req.URL)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return payload.Outcome{}, errors.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return payload.Outcome{}, &RemoteError{Message: e.Error}
		}
		return payload.Outcome{}, errors.Errorf("post %s: %s: %s", req.URL, resp.Status, strings.TrimSpace(string(data)))
	}

	var out payload.Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		return payload.Outcome{}, errors.Wrap(err, "decode outcome")
	}
	return out, nil
}
