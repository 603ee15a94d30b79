// Package events provides the event types emitted by a gateway shard.
//
// A shard emits three families of events:
//
// Shard Lifecycle Events:
//   - SHARD_CONNECTING: A WebSocket connection is being established
//   - SHARD_IDENTIFYING: An Identify is about to be sent
//   - SHARD_RESUMING: A Resume is about to be sent
//   - SHARD_CONNECTED: The session is ready (after READY or RESUMED)
//   - SHARD_RECONNECTING: The shard lost its connection and is reconnecting
//   - SHARD_DISCONNECTED: The connection closed
//   - SHARD_PAYLOAD: A raw payload was received
//
// Gateway Control Events:
//   - GATEWAY_HELLO: The gateway sent its heartbeat interval
//   - GATEWAY_HEARTBEAT: The gateway requested a heartbeat
//   - GATEWAY_HEARTBEAT_ACK: The gateway acknowledged a heartbeat
//   - GATEWAY_INVALIDATE_SESSION: The gateway invalidated the session
//   - GATEWAY_RECONNECT: The gateway asked the shard to reconnect
//
// Dispatch Events:
//   - READY: A new session was created
//   - RESUMED: An existing session was resumed
//   - DISPATCH: Any other dispatch, carried as raw JSON
//
// # Filtering
//
// Each event type has a bit in EventTypeFlags. Shards only emit events whose
// flag is set in their configuration:
//
//	flags := events.FlagReady | events.FlagDispatch | events.FlagShardDisconnected
//	if flags.Contains(events.EventTypeGatewayHello) {
//		// never reached
//	}
//
// # Parsing Dispatches
//
//	event, err := events.ParseDispatch("READY", 1, raw)
//	if err != nil {
//		log.Fatal(err)
//	}
//	if ready, ok := event.(*events.ReadyEvent); ok {
//		fmt.Println(ready.SessionID)
//	}
package events
