// Package checks implements the interactive accessibility checks that the
// rule engine does not cover: keyboard reachability, focus visibility,
// skip links, form error exposure and the accessibility statement.
//
// Every check implements the Check interface and is a read-only
// observation of a browser.Document, so the pipeline runs them
// concurrently. A nil result means the page passes the check.
package checks
