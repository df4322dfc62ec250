// Package transport ships payloads between a driver and an agent hosting the
// evaluation surfaces.
//
// The stream protocol is newline-delimited JSON. The agent announces itself
// with a ready message, then answers every submit message with an outcome or
// an error message carrying the same id:
//
//	{"type":"ready"}
//	{"type":"submit","id":"1","payload":{"mode":"execute","source":"function () { return a; }","bindings":{"a":1}}}
//	{"type":"outcome","id":"1","outcome":{"kind":"value","value":1,"bindings":{"a":1}}}
//
// Serve implements the agent side over any reader and writer, Conn the driver
// side, and Spawn starts an agent as a child process. SubmitHandler and
// HTTPClient carry the same payloads over HTTP, one request per round trip.
package transport
