// Package commands defines the gateway CLI.
//
// Commands
//
//   - run      Run a single shard and log its events
//   - cluster  Run every recommended shard and log their events
//   - version  Print the CLI version
//
// # Configuration
//
// The token and defaults come from GATEWAY_* environment variables, which
// may be placed in a .env file. Flags override the environment.
package commands
