// Package hostfunc provides Go functions that remote evaluation surfaces
// expose to scripts as globals.
//
// # Overview
//
// A host function receives one options object from the script and returns a
// JSON-compatible value or an error; errors are thrown into the script.
//
// # Registry
//
// The [Registry] manages available host functions. Register custom functions
// or use the built-in helpers:
//
//	registry := hostfunc.NewRegistry()
//	registry.Register("my_func", func(ctx context.Context, args map[string]any) (any, error) {
//	    return "result", nil
//	})
//
// # Key-Value Store
//
// [KVStore] is an in-memory store. A host shares one store between its server
// and browser surfaces, so a page can read what the server wrote:
//
//	kv := hostfunc.NewKVStore()
//	kv.Register(registry)
//
//	// in a script
//	kv_set({key: "user", value: {name: "ada"}});
//	kv_get({key: "missing", default: 0});
//
// # HTTP
//
// [Fetcher] registers http_request. Only the configured hosts and their
// subdomains are reachable:
//
//	hostfunc.NewFetcher(hostfunc.FetchConfig{
//	    AllowedHosts: []string{"localhost"},
//	}).Register(registry)
//
//	// in a script
//	var res = http_request({url: "http://localhost:3000/api/users", method: "POST", body: {name: "ada"}});
//	res.status, res.ok, res.json
package hostfunc
