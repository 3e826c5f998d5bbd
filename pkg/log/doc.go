/*
Package log provides structured logging for Laser using zerolog.

It wraps a single global zerolog.Logger, initialized once via Init, with
helpers for the context fields this codebase attaches most often:
database, table, partition, and replication role (leader/follower).

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	partLog := log.WithPartition("app_db", "sessions", "3")
	partLog.Info().Uint64("seq_no", seqNo).Msg("applied write batch")

	log.Logger.Error().Err(err).Str("component", "rpcx").Msg("pull rpc failed")
*/
package log
