// Package sink owns delivery of encoded envelopes to a message bus.
//
// Ownership boundary:
// - Publisher contract consumed by the capture hooks
// - MQTT publisher with rate-limited reconnect
// - in-memory publisher for dry runs and tests
package sink
