// Package core provides the foundational types shared by every part of the
// gateway client.
//
// It defines the identifiers exchanged with the gateway (snowflakes, shard
// IDs), the gateway intents bit set, and the typed errors that the higher
// level packages wrap.
//
// The gateway is a push-based, real-time WebSocket endpoint. A client opens
// one or more shards against it; each shard identifies with a token, a set of
// intents and its shard ID, and then receives the events routed to it:
//   - Shard identity is the pair [id, total]
//   - Intents select which groups of events the gateway sends
//   - Snowflakes are 64-bit IDs that travel as decimal strings
//
// Example usage:
//
//	import "github.com/gatewire/gateway/pkg/core"
//
//	intents, err := core.ParseIntents("guilds,guild_messages")
//	if err != nil {
//		log.Fatal(err)
//	}
//	id := core.NewShardID(0, 4)
//	fmt.Println(id, intents.Has(core.IntentGuilds))
package core
