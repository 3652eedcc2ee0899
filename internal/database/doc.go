// Package database provides the SQLite scan archive for a11yscan.
//
// ReportDB keeps every report produced by the scan command, keyed by scan
// id, so that the history command can compare consecutive scans of a URL.
// It uses modernc.org/sqlite, a CGO-free driver, and stores the whole report
// as JSON next to a few indexed columns (URL, scan time, score, risk level).
//
// The archive is opt-in history. Payment sessions and download tokens live
// in memory only and are never written here.
package database
