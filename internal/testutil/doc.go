// Package testutil provides an in-process gateway for tests.
//
// Gateway serves the WebSocket gateway and the bot gateway lookup over
// httptest. Each accepted connection is greeted with Hello and exposed as a
// Conn that tests script: expect client payloads, dispatch events, or close
// the connection with a gateway close code.
//
// This package is internal and should not be imported by external code.
package testutil
