// Package pipeline assembles accessibility scan reports.
//
// An Assembler drives one scan through its stages: open a rendering
// session, navigate, run the rule engine, run the interactive checks
// concurrently, then normalize, sort, score and classify the findings.
// The rendering session is released on every exit path and every scan
// runs under its own timeout.
//
// Load and analysis failures are reported as *ScanFailure with one of four
// reasons (TIMEOUT, BLOCKED, NAVIGATION_ERROR, PARTIAL). A failing
// interactive check is not a failure; it is left out of the report.
//
// BatchProcessor scans several URLs with a concurrency limit using
// errgroup.
package pipeline
