// Package rules provides the declarative accessibility rule engine.
//
// The Engine interface reports violations in the shape of axe-core results
// so any engine producing that shape can be plugged into the pipeline.
// StaticEngine is the built-in implementation. It evaluates DOM rules
// (text alternatives, labels, names, language, title, viewport, ids,
// aria-hidden, inline color contrast) against a parsed browser.Document.
package rules
