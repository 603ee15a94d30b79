// Package shard implements a single gateway connection.
//
// A Shard dials the gateway, identifies or resumes, keeps the connection
// alive with heartbeats and reconnects when the connection drops. Events are
// delivered on the stream returned by New:
//
//	cfg, err := shard.NewConfig(token, core.IntentGuilds|core.IntentGuildMessages)
//	if err != nil {
//		return err
//	}
//	s, stream := shard.New(cfg)
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	defer s.Shutdown()
//
//	for {
//		event, err := stream.Next(ctx)
//		if err != nil {
//			return err
//		}
//		fmt.Println(event.Type())
//	}
//
// Commands sent with Shard.Command are rate limited to what the gateway
// accepts per connection, with room left for heartbeats.
package shard
