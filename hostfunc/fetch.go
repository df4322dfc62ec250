package hostfunc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxURLLength = 8192
	DefaultMaxBodySize  = 1 << 20 // 1MB
	DefaultFetchTimeout = 30 * time.Second
)

// FetchConfig limits what remote scripts may reach through http_request.
// With no allowed hosts every request is refused.
type FetchConfig struct {
	AllowedHosts []string
	MaxBodySize  int64
	MaxURLLength int
	Timeout      time.Duration
}

// Fetcher lets remote scripts call HTTP endpoints of the application under
// test, for example to seed data before a browser check.
type Fetcher struct {
	cfg    FetchConfig
	client *http.Client
}

func NewFetcher(cfg FetchConfig) *Fetcher {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.MaxURLLength <= 0 {
		cfg.MaxURLLength = DefaultMaxURLLength
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultFetchTimeout
	}
	f := &Fetcher{cfg: cfg}
	f.client = &http.Client{
		Timeout: cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			if host := req.URL.Hostname(); !f.allowed(host) {
				return fmt.Errorf("redirect to host not allowed: %s", host)
			}
			return nil
		},
	}
	return f
}

// Register installs http_request.
func (f *Fetcher) Register(r *Registry) {
	r.Register("http_request", f.Request)
}

// Request performs one HTTP call described by args (url, method, headers,
// body) and returns status, ok, headers, body and, for JSON responses, the
// decoded json.
func (f *Fetcher) Request(ctx context.Context, args map[string]any) (any, error) {
	req, err := f.buildRequest(ctx, args)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for k, v := range resp.Header {
		if len(v) > 0 {
			headers[strings.ToLower(k)] = v[0]
		}
	}

	result := map[string]any{
		"status":  resp.StatusCode,
		"ok":      resp.StatusCode >= 200 && resp.StatusCode < 300,
		"headers": headers,
		"body":    string(body),
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		var decoded any
		if json.Unmarshal(body, &decoded) == nil {
			result["json"] = decoded
		}
	}
	return result, nil
}

func (f *Fetcher) buildRequest(ctx context.Context, args map[string]any) (*http.Request, error) {
	method, _ := args["method"].(string)
	method = strings.ToUpper(method)
	switch method {
	case "":
		method = http.MethodGet
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch, http.MethodHead, http.MethodOptions:
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}

	rawURL, _ := args["url"].(string)
	switch {
	case rawURL == "":
		return nil, fmt.Errorf("url required")
	case len(rawURL) > f.cfg.MaxURLLength:
		return nil, fmt.Errorf("url exceeds max length")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("scheme must be http or https")
	}
	if len(f.cfg.AllowedHosts) == 0 {
		return nil, fmt.Errorf("http not enabled")
	}
	if host := parsed.Hostname(); !f.allowed(host) {
		return nil, fmt.Errorf("host not allowed: %s", host)
	}

	var body io.Reader
	switch b := args["body"].(type) {
	case nil:
	case string:
		body = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if headers, ok := args["headers"].(map[string]any); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}
	if req.ContentLength > f.cfg.MaxBodySize {
		return nil, fmt.Errorf("request body exceeds max size")
	}
	return req, nil
}

// allowed matches host exactly or as a subdomain of an allowed host.
func (f *Fetcher) allowed(host string) bool {
	for _, a := range f.cfg.AllowedHosts {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}
