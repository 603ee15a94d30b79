package core

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeJSON(t *testing.T) {
	t.Run("encodes as string", func(t *testing.T) {
		data, err := json.Marshal(Snowflake(81384788765712384))
		require.NoError(t, err)
		assert.Equal(t, `"81384788765712384"`, string(data))
	})

	t.Run("decodes string and number", func(t *testing.T) {
		var fromString, fromNumber Snowflake
		require.NoError(t, json.Unmarshal([]byte(`"175928847299117063"`), &fromString))
		require.NoError(t, json.Unmarshal([]byte(`42`), &fromNumber))
		assert.Equal(t, Snowflake(175928847299117063), fromString)
		assert.Equal(t, Snowflake(42), fromNumber)
	})

	t.Run("null is zero", func(t *testing.T) {
		s := Snowflake(7)
		require.NoError(t, json.Unmarshal([]byte(`null`), &s))
		assert.Zero(t, s)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		var s Snowflake
		assert.Error(t, json.Unmarshal([]byte(`"abc"`), &s))
	})
}

func TestShardID(t *testing.T) {
	id := NewShardID(3, 8)
	assert.Equal(t, uint64(3), id.ID())
	assert.Equal(t, uint64(8), id.Total())
	assert.Equal(t, "[3, 8]", id.String())

	data, err := json.Marshal(id)
	require.NoError(t, err)
	assert.Equal(t, "[3,8]", string(data))

	assert.Equal(t, ShardID{0, 1}, DefaultShardID())
}

func TestIntents(t *testing.T) {
	intents := IntentGuilds | IntentGuildMessages | IntentGuildPresences

	assert.True(t, intents.Has(IntentGuilds))
	assert.True(t, intents.Has(IntentGuilds|IntentGuildMessages))
	assert.False(t, intents.Has(IntentGuildMembers))
	assert.Equal(t, IntentGuildPresences, intents.Privileged())
	assert.Equal(t, "guilds,guild_presences,guild_messages", intents.String())
	assert.Equal(t, Intents(0x7FFF), IntentsAll)

	data, err := json.Marshal(intents)
	require.NoError(t, err)
	assert.Equal(t, "769", string(data))
}

func TestParseIntents(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Intents
		wantErr bool
	}{
		{name: "empty", input: "", want: 0},
		{name: "single", input: "guilds", want: IntentGuilds},
		{name: "list with spaces", input: "guilds, Guild_Messages ,", want: IntentGuilds | IntentGuildMessages},
		{name: "all", input: "all", want: IntentsAll},
		{name: "unprivileged", input: "unprivileged", want: IntentsAll &^ IntentsPrivileged},
		{name: "unknown", input: "guilds,nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIntents(tt.input)
			if tt.wantErr {
				var configErr *ConfigError
				require.True(t, errors.As(err, &configErr))
				assert.Equal(t, "intents", configErr.Field)
				assert.True(t, errors.Is(err, ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	inner := errors.New("boom")

	configErr := &ConfigError{Field: "token", Value: "", Err: inner}
	assert.Contains(t, configErr.Error(), "token")
	assert.ErrorIs(t, configErr, inner)

	protoErr := &ProtocolError{Operation: "decode", Code: 4002, Err: inner}
	assert.Contains(t, protoErr.Error(), "4002")
	assert.ErrorIs(t, protoErr, inner)
}
