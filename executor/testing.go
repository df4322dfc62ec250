package executor

import (
	"sync"

	"github.com/caffeineduck/goremote/engine"
)

// Shared host for tests, so that every test does not start its own pair of
// engines.
var (
	testHost     *engine.Host
	testHostOnce sync.Once
	testHostErr  error
)

// GetTestHost returns a host with a server and a browser engine. It is created
// once and reused.
func GetTestHost() (*engine.Host, error) {
	testHostOnce.Do(func() {
		testHost, testHostErr = engine.NewHost()
	})
	return testHost, testHostErr
}

// CloseTestHost closes the shared test host.
// Call this in TestMain if needed, but typically not necessary.
func CloseTestHost() {
	if testHost != nil {
		testHost.Close()
		testHost = nil
		testHostOnce = sync.Once{}
	}
}
