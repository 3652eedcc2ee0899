package model

import (
	"slices"
	"time"
)

// PaymentStatus is the lifecycle state of a payment session.
// The only transition is PENDING to COMPLETED; a session that never
// completes stays PENDING until it is purged.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
)

// CurrencyILS is the only currency the product charges in.
const CurrencyILS = "ILS"

// Snapshot is a detached copy of a payment session.
// Only the payment store holds the live record.
type Snapshot struct {
	SessionID       string        `json:"session_id"`
	ScanTargetURL   string        `json:"scan_target_url"`
	BuyerEmail      string        `json:"buyer_email"`
	Amount          int64         `json:"amount"`
	Currency        string        `json:"currency"`
	Status          PaymentStatus `json:"status"`
	RemoteChargeRef string        `json:"remote_charge_ref,omitempty"`
	PaymentURL      string        `json:"payment_url,omitempty"`
	DemoMode        bool          `json:"demo_mode"`
	Standard        Standard      `json:"standard"`
	Locale          Locale        `json:"locale"`
	CreatedAt       time.Time     `json:"created_at"`

	// CompletedAt is non-nil iff Status is COMPLETED.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// DownloadToken is non-empty iff Status is COMPLETED.
	DownloadToken string `json:"-"`

	// CachedDocument is the rendered report, once generated, and
	// DocumentName its download file name.
	CachedDocument []byte `json:"-"`
	DocumentName   string `json:"-"`
}

// Completed reports whether the session has been paid for.
func (s Snapshot) Completed() bool {
	return s.Status == PaymentCompleted
}

// Clone returns a deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	c := s
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	c.CachedDocument = slices.Clone(s.CachedDocument)
	return c
}
