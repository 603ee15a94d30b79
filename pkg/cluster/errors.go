package cluster

import "fmt"

// ClusterStartErrorKind is the type of ClusterStartError that occurred.
type ClusterStartErrorKind int

const (
	// ClusterStartRetrievingGatewayInfo means the bot gateway lookup failed.
	ClusterStartRetrievingGatewayInfo ClusterStartErrorKind = iota
	// ClusterStartTLS means the shared TLS configuration could not be built.
	ClusterStartTLS
	// ClusterStartInvalidScheme means the shard scheme is invalid.
	ClusterStartInvalidScheme
	// ClusterStartShardConfig means a shard configuration was rejected.
	ClusterStartShardConfig
)

func (k ClusterStartErrorKind) String() string {
	switch k {
	case ClusterStartRetrievingGatewayInfo:
		return "retrieving the bot gateway info failed"
	case ClusterStartTLS:
		return "building the TLS configuration failed"
	case ClusterStartInvalidScheme:
		return "shard scheme is invalid"
	case ClusterStartShardConfig:
		return "shard configuration is invalid"
	default:
		return fmt.Sprintf("ClusterStartErrorKind(%d)", int(k))
	}
}

// ClusterStartError is returned when a cluster could not be created.
type ClusterStartError struct {
	Kind ClusterStartErrorKind
	Err  error
}

func (e *ClusterStartError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *ClusterStartError) Unwrap() error {
	return e.Err
}

// ClusterCommandErrorKind is the type of ClusterCommandError that occurred.
type ClusterCommandErrorKind int

const (
	// ClusterCommandShardNonexistent means the cluster does not run the shard.
	ClusterCommandShardNonexistent ClusterCommandErrorKind = iota
	// ClusterCommandSending means the shard failed to send the command.
	ClusterCommandSending
)

// ClusterCommandError is returned when sending a command through a cluster
// failed.
type ClusterCommandError struct {
	Kind    ClusterCommandErrorKind
	ShardID uint64
	Err     error
}

func (e *ClusterCommandError) Error() string {
	switch e.Kind {
	case ClusterCommandShardNonexistent:
		return fmt.Sprintf("shard %d does not exist in the cluster", e.ShardID)
	default:
		return fmt.Sprintf("sending the command over shard %d failed: %v", e.ShardID, e.Err)
	}
}

func (e *ClusterCommandError) Unwrap() error {
	return e.Err
}
