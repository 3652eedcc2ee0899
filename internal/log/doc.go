// Package log builds slog loggers that keep payment secrets out of log
// output.
//
// SecureHandler wraps any slog.Handler. It fully masks gateway
// credentials, SMTP passwords, download tokens and bearer or JWT values.
// It shortens session ids and email addresses so that log lines can still
// be correlated:
//
//	logger := log.NewSecureJSONLogger(os.Stderr, false)
//	logger.Info("payment completed",
//	    "session_id", "pay_0123456789ab", // pay_0123***
//	    "email", "buyer@example.com",     // b***@example.com
//	    "token", token,                   // ***REDACTED***
//	)
//
// NewSecureLogger is meant for the command line and NewSecureJSONLogger
// for the server.
package log
