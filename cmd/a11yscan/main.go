// Package main provides the entry point for the a11yscan CLI.
//
// a11yscan scans web pages for accessibility defects against the Israeli
// accessibility regulation (IS 5568) or WCAG 2.2 AA, scores them, and
// estimates the legal exposure of the result. It can also serve the scan
// and paid report API over HTTP.
//
// Usage:
//
//	a11yscan scan https://example.co.il
//	a11yscan history https://example.co.il
//	a11yscan serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
