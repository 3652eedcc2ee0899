// Package server exposes scanning and paid report downloads over HTTP.
//
// # Routes
//
//	GET  /, /health                      health and coverage summary
//	POST /api/v1/scan                    free scan, JSON report
//	POST /api/v1/payment/create          open a payment session
//	GET  /api/v1/payment/verify/{id}     confirm payment, get a download token
//	POST /api/v1/payment/webhook         gateway notification
//	GET  /api/v1/report/{token}          download the paid report
//
// # Errors
//
// Scan failures answer with their category (TIMEOUT, BLOCKED,
// NAVIGATION_ERROR, PARTIAL) and a localized message; diagnostics are only
// logged. Payment configuration errors answer 503 with their message.
// Gateway errors answer 502 with a generic message. Unknown sessions and
// expired tokens answer 404.
package server
