// Package mail delivers purchased reports by email.
//
// SMTPMailer sends through an SMTP relay and retries failed attempts with
// exponential backoff. A mailer without host or sender returns
// ErrNotConfigured; exhausted retries return *DeliveryError.
package mail
