// Package report renders scan reports.
//
// Writers implement the Writer interface and can be composed with
// MultiWriter:
//   - MarkdownWriter: the downloadable document, in the report's locale
//   - TextWriter: colored terminal output
//   - JSONWriter and VersionedJSONWriter: structured output for tools
//
// Render wraps MarkdownWriter and is what paid downloads are built from.
// Its output is a function of the report alone.
package report
