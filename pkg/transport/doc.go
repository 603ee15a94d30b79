// Package transport provides the network layer of the gateway client.
//
// It dials gateway WebSocket connections, owns the TLS configuration shared
// between shards, and performs the single REST lookup a client needs before
// connecting: the bot gateway endpoint, which returns the gateway URL, the
// recommended shard count and the session start limit.
//
// Example usage:
//
//	import "github.com/gatewire/gateway/pkg/transport"
//
//	tlsContainer, err := transport.NewTLSContainer()
//	if err != nil {
//		log.Fatal(err)
//	}
//	dialer := transport.NewDialer(tlsContainer)
//	conn, err := dialer.Dial(ctx, "wss://gateway.discord.gg/?v=8&encoding=json")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close()
package transport
