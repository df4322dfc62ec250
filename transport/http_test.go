package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/caffeineduck/goremote/engine"
	"github.com/caffeineduck/goremote/payload"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"
)

func newHTTPAgent(t *testing.T) *HTTPClient {
	t.Helper()
	host, err := engine.NewHost()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.Handle(DefaultSubmitPath, SubmitHandler(host))
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		host.Close()
	})
	return NewHTTPClient(srv.URL + "/")
}

func TestHTTPRoundTrip(t *testing.T) {
	client := newHTTPAgent(t)

	out, err := client.Submit(context.Background(), payload.Payload{
		Target:   "browser",
		Mode:     payload.ModePromise,
		Source:   `function (resolve) { setTimeout(function () { count++; resolve(count); }, 5); }`,
		Bindings: map[string]ldvalue.Value{"count": ldvalue.Int(41)},
	})
	require.NoError(t, err)
	assert.Equal(t, payload.KindValue, out.Kind)
	assert.Equal(t, 42, out.Value.IntValue())
	assert.Equal(t, 42, out.Bindings["count"].IntValue())
}

func TestHTTPThrownIsNotAnError(t *testing.T) {
	client := newHTTPAgent(t)

	out, err := client.Submit(context.Background(), payload.Payload{Source: `function () { throw new Error("remote"); }`})
	require.NoError(t, err)
	assert.Equal(t, payload.KindThrown, out.Kind)
	assert.Contains(t, out.Error, "remote")
}

func TestHTTPUnknownTarget(t *testing.T) {
	client := newHTTPAgent(t)

	_, err := client.Submit(context.Background(), payload.Payload{Target: "mobile", Source: `function () {}`})
	var remote *RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Contains(t, remote.Message, `unknown target "mobile"`)
}

func TestHTTPHandlerRejectsBadRequests(t *testing.T) {
	host, err := engine.NewHost()
	require.NoError(t, err)
	defer host.Close()
	handler := SubmitHandler(host)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{"get", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{", http.StatusBadRequest},
		{"empty source", http.MethodPost, `{"mode":"execute","source":"  "}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, DefaultSubmitPath, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHTTPClientUpstreamFailure(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(http.StatusServiceUnavailable))
	srv := httptest.NewServer(handler)
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).Submit(context.Background(), payload.Payload{Source: `function () {}`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	require.Len(t, requests, 1)
	info := <-requests
	assert.Equal(t, http.MethodPost, info.Request.Method)
	assert.Equal(t, DefaultSubmitPath, info.Request.URL.Path)
	assert.Contains(t, string(info.Body), `"source":"function () {}"`)
}

func TestHTTPClientRemoteErrorBody(t *testing.T) {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	srv := httptest.NewServer(httphelpers.HandlerWithResponse(http.StatusBadGateway, headers, []byte(`{"error":"agent gone"}`)))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).Submit(context.Background(), payload.Payload{Source: `function () {}`})
	var remote *RemoteError
	require.True(t, errors.As(err, &remote), "got %v", err)
	assert.Equal(t, "agent gone", remote.Message)
}
