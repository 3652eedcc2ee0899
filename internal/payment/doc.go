// Package payment tracks paid report purchases.
//
// # Lifecycle
//
// Store.Create opens a PENDING session and a hosted checkout at the
// Gateway. The session becomes COMPLETED either when Store.Verify finds the
// remote charge paid or when the gateway posts a paid Notification. The
// transition happens at most once per session and mints exactly one
// download token; later verifications and replayed notifications return
// the same state. A session that is never paid stays PENDING until it is
// purged.
//
// Without a Gateway the store runs in demo mode: checkout URLs point
// straight at the success page and every verification succeeds.
//
// # Retention
//
// Sessions are kept for two hours after creation. Expired sessions are
// swept lazily at the start of each Create; purging a session revokes its
// token. Download tokens resolve for thirty minutes after completion and
// are stored only as SHA3-256 digests.
//
// # Errors
//
// Unknown sessions and tokens match ErrNotFound. *ConfigurationError is
// safe to show to users. *GatewayError carries a generic message; the
// remote diagnostic is available through errors.Unwrap for logging.
package payment
