// Package scoring turns findings into an accessibility score and a legal
// risk classification.
//
// Rule-engine findings cost 10/5/2/1 points per instance (critical, serious,
// moderate, minor) with at most five instances counted. Interactive-check
// findings cost 15/10/5/2 points once. The score starts at 100 and is
// clamped to [0,100].
package scoring
