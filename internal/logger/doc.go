// Package logger carries a zap sugared logger through contexts.
//
// The publisher scopes its logger per session and the gateway per RPC with
// WithName and WithFields; code below them only calls InfoKV, WarnKV and friends
// on the context it was given. SetLevel applies the log_level setting to the
// process logger, while WithLevel pins the gateway to its own level.
package logger
