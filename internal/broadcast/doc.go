// Package broadcast implements the live subscriber channel using the actor pattern.
//
// The Hub owns all websocket connections via a single goroutine + command channel
// (no mutexes). The Publisher computes sentiment views on an interval and on
// subscriber refresh requests and fans them out through the Hub. Per-connection
// write goroutines handle slow clients gracefully.
package broadcast
