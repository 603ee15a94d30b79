package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/google/uuid"

	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/encoding"
)

// Common error variables for command validation.
var (
	ErrMissingToken     = errors.New("token is required")
	ErrMissingSessionID = errors.New("session ID is required")
	ErrMissingGuildID   = errors.New("guild ID is required")
	ErrQueryAndUserIDs  = errors.New("exactly one of query and user IDs must be set")
	ErrNonceTooLong     = errors.New("nonce must be at most 32 bytes")
	ErrInvalidStatus    = errors.New("invalid status")
)

// MaxNonceLength is the longest nonce the gateway echoes back.
const MaxNonceLength = 32

// Command is a payload sent to the gateway.
type Command interface {
	// Op returns the opcode the command is sent with
	Op() encoding.OpCode

	// Validate checks the command before it is serialized
	Validate() error
}

// Marshal validates a command and serializes it into a gateway payload.
func Marshal(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("command is nil")
	}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%s command validation failed: %w", cmd.Op(), err)
	}
	return encoding.Encode(cmd.Op(), cmd)
}

// Heartbeat keeps the connection alive. Seq is the last sequence received,
// nil before the first dispatch.
type Heartbeat struct {
	Seq *uint64
}

// Op returns OpHeartbeat.
func (h *Heartbeat) Op() encoding.OpCode { return encoding.OpHeartbeat }

// Validate always succeeds.
func (h *Heartbeat) Validate() error { return nil }

// MarshalJSON encodes the heartbeat as the bare sequence number.
func (h *Heartbeat) MarshalJSON() ([]byte, error) {
	if h.Seq == nil {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%d", *h.Seq)), nil
}

// IdentifyProperties describe the connecting client.
type IdentifyProperties struct {
	OS      string `json:"$os"`
	Browser string `json:"$browser"`
	Device  string `json:"$device"`
}

// DefaultIdentifyProperties returns the properties of this library.
func DefaultIdentifyProperties() IdentifyProperties {
	return IdentifyProperties{
		OS:      runtime.GOOS,
		Browser: "gatewire",
		Device:  "gatewire",
	}
}

// Identify starts a new session.
type Identify struct {
	Token          string             `json:"token"`
	Properties     IdentifyProperties `json:"properties"`
	Compress       bool               `json:"compress"`
	LargeThreshold uint64             `json:"large_threshold"`
	Shard          core.ShardID       `json:"shard"`
	Presence       *UpdatePresence    `json:"presence,omitempty"`
	Intents        core.Intents       `json:"intents"`
}

// Op returns OpIdentify.
func (i *Identify) Op() encoding.OpCode { return encoding.OpIdentify }

// Validate checks the token and the embedded presence.
func (i *Identify) Validate() error {
	if i.Token == "" {
		return ErrMissingToken
	}
	if i.Presence != nil {
		return i.Presence.Validate()
	}
	return nil
}

// Resume reattaches to an existing session and replays missed dispatches.
type Resume struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       uint64 `json:"seq"`
}

// Op returns OpResume.
func (r *Resume) Op() encoding.OpCode { return encoding.OpResume }

// Validate checks the token and session ID.
func (r *Resume) Validate() error {
	if r.Token == "" {
		return ErrMissingToken
	}
	if r.SessionID == "" {
		return ErrMissingSessionID
	}
	return nil
}

// RequestGuildMembers asks for member chunks of a guild. Either Query or
// UserIDs selects the members.
type RequestGuildMembers struct {
	GuildID   core.Snowflake   `json:"guild_id"`
	Query     *string          `json:"query,omitempty"`
	Limit     uint64           `json:"limit"`
	Presences bool             `json:"presences,omitempty"`
	UserIDs   []core.Snowflake `json:"user_ids,omitempty"`
	Nonce     string           `json:"nonce,omitempty"`
}

// NewRequestGuildMembersByQuery requests members whose name starts with
// query. An empty query with limit 0 requests every member.
func NewRequestGuildMembersByQuery(guildID core.Snowflake, query string, limit uint64) *RequestGuildMembers {
	return &RequestGuildMembers{
		GuildID: guildID,
		Query:   &query,
		Limit:   limit,
		Nonce:   NewNonce(),
	}
}

// NewRequestGuildMembersByIDs requests specific members.
func NewRequestGuildMembersByIDs(guildID core.Snowflake, userIDs ...core.Snowflake) *RequestGuildMembers {
	return &RequestGuildMembers{
		GuildID: guildID,
		UserIDs: userIDs,
		Nonce:   NewNonce(),
	}
}

// Op returns OpRequestGuildMembers.
func (r *RequestGuildMembers) Op() encoding.OpCode { return encoding.OpRequestGuildMembers }

// Validate checks the member selector and the nonce length.
func (r *RequestGuildMembers) Validate() error {
	if r.GuildID == 0 {
		return ErrMissingGuildID
	}
	if (r.Query == nil) == (len(r.UserIDs) == 0) {
		return ErrQueryAndUserIDs
	}
	if len(r.Nonce) > MaxNonceLength {
		return ErrNonceTooLong
	}
	return nil
}

// MarshalJSON fills in a random nonce when none is set.
func (r *RequestGuildMembers) MarshalJSON() ([]byte, error) {
	type plain RequestGuildMembers
	out := plain(*r)
	if out.Nonce == "" {
		out.Nonce = NewNonce()
	}
	return json.Marshal(out)
}

// NewNonce returns a random 32 character nonce.
func NewNonce() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Status is a presence status.
type Status string

// Presence statuses.
const (
	StatusOnline    Status = "online"
	StatusDND       Status = "dnd"
	StatusIdle      Status = "idle"
	StatusInvisible Status = "invisible"
	StatusOffline   Status = "offline"
)

// ActivityType is the kind of an activity.
type ActivityType int

// Activity types.
const (
	ActivityPlaying   ActivityType = 0
	ActivityStreaming ActivityType = 1
	ActivityListening ActivityType = 2
	ActivityWatching  ActivityType = 3
	ActivityCompeting ActivityType = 5
)

// Activity is shown in the user's presence.
type Activity struct {
	Name string       `json:"name"`
	Type ActivityType `json:"type"`
	URL  string       `json:"url,omitempty"`
}

// UpdatePresence changes the bot's presence.
type UpdatePresence struct {
	// Since is the unix time in milliseconds the client went idle
	Since      *int64     `json:"since"`
	Activities []Activity `json:"activities"`
	Status     Status     `json:"status"`
	AFK        bool       `json:"afk"`
}

// NewUpdatePresence creates a presence update with the given status and
// activities.
func NewUpdatePresence(status Status, activities ...Activity) *UpdatePresence {
	if activities == nil {
		activities = []Activity{}
	}
	return &UpdatePresence{
		Activities: activities,
		Status:     status,
	}
}

// Op returns OpPresenceUpdate.
func (u *UpdatePresence) Op() encoding.OpCode { return encoding.OpPresenceUpdate }

// Validate checks the status.
func (u *UpdatePresence) Validate() error {
	switch u.Status {
	case StatusOnline, StatusDND, StatusIdle, StatusInvisible, StatusOffline:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, u.Status)
	}
	for i, activity := range u.Activities {
		if activity.Name == "" {
			return fmt.Errorf("activity %d has no name", i)
		}
	}
	return nil
}

// UpdateVoiceState joins, moves between or leaves voice channels. A nil
// ChannelID disconnects.
type UpdateVoiceState struct {
	GuildID   core.Snowflake  `json:"guild_id"`
	ChannelID *core.Snowflake `json:"channel_id"`
	SelfMute  bool            `json:"self_mute"`
	SelfDeaf  bool            `json:"self_deaf"`
}

// Op returns OpVoiceStateUpdate.
func (u *UpdateVoiceState) Op() encoding.OpCode { return encoding.OpVoiceStateUpdate }

// Validate checks the guild ID.
func (u *UpdateVoiceState) Validate() error {
	if u.GuildID == 0 {
		return ErrMissingGuildID
	}
	return nil
}
