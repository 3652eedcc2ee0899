// Package model defines the core data structures used throughout a11yscan.
//
// This package contains the following main types:
//   - Finding: A normalized accessibility defect from any checker
//   - ScanReport: The immutable result of scanning one page
//   - Risk: The legal-exposure tier attached to a report
//   - Snapshot: A detached copy of a payment session
//
// Models live in their own package because the normalizer, scoring,
// pipeline, payment and report packages all share them.
//
// The models are serializable to JSON for API responses and the scan
// archive.
package model
