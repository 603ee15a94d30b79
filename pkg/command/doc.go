// Package command defines the payloads a shard sends to the gateway.
//
// Commands are validated before they are serialized, so a malformed command
// is rejected locally instead of costing a rate limit slot and a close frame
// from the gateway.
package command
