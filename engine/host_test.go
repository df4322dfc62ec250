package engine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/caffeineduck/goremote/hostfunc"
	"github.com/caffeineduck/goremote/payload"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHost(t *testing.T, opts ...Option) *Host {
	t.Helper()
	h, err := NewHost(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHostTargets(t *testing.T) {
	h := newTestHost(t)
	assert.Equal(t, []string{"browser", "server"}, h.Targets())

	e, ok := h.Engine("")
	require.True(t, ok)
	assert.Equal(t, DefaultTarget, e.Name())
}

func TestHostRoutesByTarget(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	out, err := h.Submit(ctx, payload.Payload{Target: "browser", Source: `function () { return typeof window; }`})
	require.NoError(t, err)
	assert.Equal(t, "object", out.Value.StringValue())

	out, err = h.Submit(ctx, payload.Payload{Source: `function () { return typeof window; }`})
	require.NoError(t, err)
	assert.Equal(t, "undefined", out.Value.StringValue())
}

func TestHostUnknownTarget(t *testing.T) {
	h := newTestHost(t)

	_, err := h.Submit(context.Background(), payload.Payload{Target: "mobile", Source: `function () {}`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown target "mobile"`)
}

func TestHostSharesKVStore(t *testing.T) {
	h := newTestHost(t)
	ctx := context.Background()

	_, err := h.Submit(ctx, payload.Payload{Target: "server", Source: `function () { kv_set({key: "user", value: {name: "ada"}}); }`})
	require.NoError(t, err)

	out, err := h.Submit(ctx, payload.Payload{Target: "browser", Source: `function () {
		return [kv_get({key: "user"}).name, kv_get({key: "missing", default: 3}), kv_keys({})];
	}`})
	require.NoError(t, err)
	assert.Equal(t, payload.KindValue, out.Kind, out.Error)
	assert.Equal(t, `["ada",3,["user"]]`, out.Value.JSONString())
}

func TestHostFuncErrorThrows(t *testing.T) {
	h := newTestHost(t)

	out, err := h.Submit(context.Background(), payload.Payload{Source: `function () {
		try {
			kv_get({});
		} catch (e) {
			return "caught: " + e.message;
		}
	}`})
	require.NoError(t, err)
	assert.Equal(t, "caught: kv_get: key required", out.Value.StringValue())
}

func TestHostCustomRegistry(t *testing.T) {
	registry := hostfunc.NewRegistry()
	registry.Register("greet", func(ctx context.Context, args map[string]any) (any, error) {
		return "hello " + args["name"].(string), nil
	})
	h := newTestHost(t, WithHostFuncs(registry))

	out, err := h.Submit(context.Background(), payload.Payload{Target: "browser", Source: `function () {
		return [greet({name: "bob"}), typeof kv_get];
	}`})
	require.NoError(t, err)
	assert.Equal(t, `["hello bob","undefined"]`, out.Value.JSONString())
}

func TestHostHTTPRequest(t *testing.T) {
	headers := make(http.Header)
	headers.Set("Content-Type", "application/json")
	handler, requests := httphelpers.RecordingHandler(httphelpers.HandlerWithResponse(http.StatusOK, headers, []byte(`{"id":7}`)))
	srv := httptest.NewServer(handler)
	defer srv.Close()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	h := newTestHost(t, WithAllowedHosts(u.Hostname()))
	out, err := h.Submit(context.Background(), payload.Payload{
		Target: "browser",
		Source: `function () { var res = http_request({url: "` + srv.URL + `/seed", method: "POST"}); return [res.status, res.json.id]; }`,
	})
	require.NoError(t, err)
	assert.Equal(t, payload.KindValue, out.Kind, out.Error)
	assert.Equal(t, `[200,7]`, out.Value.JSONString())

	require.Len(t, requests, 1)
	info := <-requests
	assert.Equal(t, http.MethodPost, info.Request.Method)
	assert.Equal(t, "/seed", info.Request.URL.Path)
}

func TestHostHTTPRequestDisabled(t *testing.T) {
	h := newTestHost(t)

	out, err := h.Submit(context.Background(), payload.Payload{Source: `function () { return typeof http_request; }`})
	require.NoError(t, err)
	assert.Equal(t, "undefined", out.Value.StringValue())
}
