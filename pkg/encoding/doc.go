// Package encoding provides payload encoding and decoding for the gateway
// protocol.
//
// Every frame exchanged with the gateway is a JSON envelope carrying an
// opcode, the opcode-specific data, and for dispatches a sequence number and
// an event name. This package owns that envelope, the opcode and close code
// tables, and inflation of zlib-compressed binary frames.
//
// Example usage:
//
//	import "github.com/gatewire/gateway/pkg/encoding"
//
//	// Encode a heartbeat
//	data, err := encoding.Encode(encoding.OpHeartbeat, 42)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Decode a received frame
//	payload, err := encoding.Decode(frame)
//	if err != nil {
//		log.Fatal(err)
//	}
package encoding
