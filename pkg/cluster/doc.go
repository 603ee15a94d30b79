// Package cluster runs many shards of one bot together.
//
// A cluster creates its shards from a Scheme, shares one identify queue and
// one TLS configuration between them, and merges their event streams into a
// single stream of ShardEvent values.
package cluster
