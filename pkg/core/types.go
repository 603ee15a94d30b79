package core

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Snowflake is a 64-bit identifier. It is sent over the wire as a decimal
// string because JSON numbers lose precision above 2^53.
type Snowflake uint64

// String returns the decimal representation of the snowflake.
func (s Snowflake) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// MarshalJSON encodes the snowflake as a quoted decimal string.
func (s Snowflake) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON accepts both quoted strings and bare numbers.
func (s *Snowflake) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid snowflake %s: %w", data, err)
	}
	*s = Snowflake(v)
	return nil
}

// ShardID identifies a shard as the pair [id, total].
type ShardID [2]uint64

// NewShardID returns the shard ID for shard id out of total.
func NewShardID(id, total uint64) ShardID {
	return ShardID{id, total}
}

// DefaultShardID returns the ID of the only shard of an unsharded bot.
func DefaultShardID() ShardID {
	return ShardID{0, 1}
}

// ID returns the zero-based index of the shard.
func (s ShardID) ID() uint64 {
	return s[0]
}

// Total returns the number of shards the bot runs.
func (s ShardID) Total() uint64 {
	return s[1]
}

func (s ShardID) String() string {
	return fmt.Sprintf("[%d, %d]", s[0], s[1])
}

// Intents select the groups of events the gateway sends to a shard.
type Intents uint64

// Gateway intents.
const (
	IntentGuilds Intents = 1 << iota
	IntentGuildMembers
	IntentGuildBans
	IntentGuildEmojis
	IntentGuildIntegrations
	IntentGuildWebhooks
	IntentGuildInvites
	IntentGuildVoiceStates
	IntentGuildPresences
	IntentGuildMessages
	IntentGuildMessageReactions
	IntentGuildMessageTyping
	IntentDirectMessages
	IntentDirectMessageReactions
	IntentDirectMessageTyping
)

// IntentsPrivileged are the intents that must be enabled for the
// application before the gateway accepts them.
const IntentsPrivileged = IntentGuildMembers | IntentGuildPresences

// IntentsAll is every known intent.
const IntentsAll = IntentDirectMessageTyping<<1 - 1

var intentNames = map[string]Intents{
	"guilds":                   IntentGuilds,
	"guild_members":            IntentGuildMembers,
	"guild_bans":               IntentGuildBans,
	"guild_emojis":             IntentGuildEmojis,
	"guild_integrations":       IntentGuildIntegrations,
	"guild_webhooks":           IntentGuildWebhooks,
	"guild_invites":            IntentGuildInvites,
	"guild_voice_states":       IntentGuildVoiceStates,
	"guild_presences":          IntentGuildPresences,
	"guild_messages":           IntentGuildMessages,
	"guild_message_reactions":  IntentGuildMessageReactions,
	"guild_message_typing":     IntentGuildMessageTyping,
	"direct_messages":          IntentDirectMessages,
	"direct_message_reactions": IntentDirectMessageReactions,
	"direct_message_typing":    IntentDirectMessageTyping,
}

// Has reports whether every intent in other is set.
func (i Intents) Has(other Intents) bool {
	return i&other == other
}

// Privileged returns the privileged subset of i.
func (i Intents) Privileged() Intents {
	return i & IntentsPrivileged
}

// String returns the comma separated intent names in bit order.
func (i Intents) String() string {
	names := make([]string, 0, len(intentNames))
	for name, bit := range intentNames {
		if i&bit != 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(a, b int) bool {
		return intentNames[names[a]] < intentNames[names[b]]
	})
	return strings.Join(names, ",")
}

// MarshalJSON encodes the intents as a number.
func (i Intents) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(i))
}

// ParseIntents parses a comma separated list of intent names. The special
// names "all" and "unprivileged" expand to the matching sets.
func ParseIntents(s string) (Intents, error) {
	var out Intents
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		switch name {
		case "":
			continue
		case "all":
			out |= IntentsAll
		case "unprivileged":
			out |= IntentsAll &^ IntentsPrivileged
		default:
			bit, ok := intentNames[name]
			if !ok {
				return 0, &ConfigError{
					Field: "intents",
					Value: name,
					Err:   fmt.Errorf("unknown intent: %w", ErrInvalidConfig),
				}
			}
			out |= bit
		}
	}
	return out, nil
}
