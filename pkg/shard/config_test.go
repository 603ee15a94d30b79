package shard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewire/gateway/pkg/command"
	"github.com/gatewire/gateway/pkg/core"
	"github.com/gatewire/gateway/pkg/core/events"
	"github.com/gatewire/gateway/pkg/queue"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig("Bot abc.def", core.IntentGuilds)
	require.NoError(t, err)

	assert.Equal(t, "abc.def", cfg.Token())
	assert.Equal(t, core.IntentGuilds, cfg.Intents())
	assert.Equal(t, uint64(DefaultLargeThreshold), cfg.LargeThreshold())
	assert.Equal(t, core.DefaultShardID(), cfg.ShardID())
	assert.Equal(t, events.FlagsDefault, cfg.EventTypes())
	assert.IsType(t, &queue.LocalQueue{}, cfg.Queue())
	assert.Empty(t, cfg.GatewayURL())
	assert.Nil(t, cfg.Presence())
	assert.Nil(t, cfg.ResumeSession())
	assert.False(t, cfg.Compression())

	identify := cfg.identify()
	assert.Equal(t, "abc.def", identify.Token)
	assert.Equal(t, command.DefaultIdentifyProperties(), identify.Properties)
}

func TestNewConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		token string
		opts  []Option
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty token",
			token: "   ",
			check: func(t *testing.T, err error) {
				var configErr *core.ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Equal(t, "token", configErr.Field)
			},
		},
		{
			name:  "large threshold too low",
			token: "token",
			opts:  []Option{WithLargeThreshold(MinLargeThreshold - 1)},
			check: func(t *testing.T, err error) {
				var thresholdErr *LargeThresholdError
				require.ErrorAs(t, err, &thresholdErr)
				assert.Equal(t, LargeThresholdTooFew, thresholdErr.Kind)
			},
		},
		{
			name:  "large threshold too high",
			token: "token",
			opts:  []Option{WithLargeThreshold(MaxLargeThreshold + 1)},
			check: func(t *testing.T, err error) {
				var thresholdErr *LargeThresholdError
				require.ErrorAs(t, err, &thresholdErr)
				assert.Equal(t, LargeThresholdTooMany, thresholdErr.Kind)
			},
		},
		{
			name:  "shard id not below total",
			token: "token",
			opts:  []Option{WithShard(2, 2)},
			check: func(t *testing.T, err error) {
				var idErr *ShardIDError
				require.ErrorAs(t, err, &idErr)
				assert.Equal(t, ShardIDTooLarge, idErr.Kind)
				assert.Equal(t, uint64(2), idErr.ID)
			},
		},
		{
			name:  "invalid presence",
			token: "token",
			opts:  []Option{WithPresence(command.NewUpdatePresence("away"))},
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, command.ErrInvalidStatus))
			},
		},
		{
			name:  "nil queue",
			token: "token",
			opts:  []Option{WithQueue(nil)},
			check: func(t *testing.T, err error) {
				var configErr *core.ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Equal(t, "queue", configErr.Field)
			},
		},
		{
			name:  "resume without session",
			token: "token",
			opts:  []Option{WithResumeSession(&ResumeSession{Sequence: 3})},
			check: func(t *testing.T, err error) {
				var configErr *core.ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Equal(t, "resume", configErr.Field)
			},
		},
		{
			name:  "backoff above max",
			token: "token",
			opts:  []Option{WithReconnectBackoff(time.Minute, time.Second)},
			check: func(t *testing.T, err error) {
				var configErr *core.ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Equal(t, "reconnectBackoff", configErr.Field)
			},
		},
		{
			name:  "negative event buffer",
			token: "token",
			opts:  []Option{WithEventBuffer(-1)},
			check: func(t *testing.T, err error) {
				var configErr *core.ConfigError
				require.ErrorAs(t, err, &configErr)
				assert.Equal(t, "eventBuffer", configErr.Field)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := NewConfig(tt.token, core.IntentGuilds, tt.opts...)
			require.Error(t, err)
			assert.Nil(t, cfg)
			tt.check(t, err)
		})
	}
}

func TestConfigIdentify(t *testing.T) {
	presence := command.NewUpdatePresence(command.StatusDND)
	cfg, err := NewConfig("token", core.IntentGuilds|core.IntentGuildMembers,
		WithShard(3, 8),
		WithLargeThreshold(MaxLargeThreshold),
		WithPresence(presence),
		WithCompression(true),
	)
	require.NoError(t, err)

	identify := cfg.identify()
	assert.Equal(t, core.NewShardID(3, 8), identify.Shard)
	assert.Equal(t, uint64(MaxLargeThreshold), identify.LargeThreshold)
	assert.Same(t, presence, identify.Presence)
	assert.True(t, identify.Compress)
	assert.True(t, identify.Intents.Has(core.IntentGuildMembers))
	assert.Equal(t, uint64(3), cfg.logger.Data["shard_id"])
}

func TestDefaultReidentifyDelay(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := defaultReidentifyDelay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 5*time.Second)
	}
}
