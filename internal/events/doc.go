// Package events copies value and trigger events out of the request path.
//
// The Publisher is registered as the router's Observer and as a group
// Notifier. Events are queued and delivered by a single goroutine to the
// configured sinks: MQTT, InfluxDB and the WebSocket hub. Delivery is best
// effort; a full queue drops events and a failing sink is logged and
// counted, but neither ever fails the originating RPC request.
//
// The CommandListener accepts RPC paths on the MQTT command topic and
// publishes each outcome on the result topic.
package events
