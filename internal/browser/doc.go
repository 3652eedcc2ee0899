// Package browser loads web pages for accessibility analysis.
//
// # Architecture
//
// The package is built around two interfaces. A Renderer opens Sessions and
// a Session navigates to one page and exposes the parsed Document. The
// pipeline depends only on these interfaces, so a headless browser or a
// remote rendering service can replace the default implementation.
//
// HTTPRenderer is the default implementation. It fetches the page with
// net/http, parses it with golang.org/x/net/html and fetches linked style
// sheets best-effort. Scripts are not executed.
//
// # Errors
//
// Load failures wrap one of ErrBlocked, ErrNavigation, ErrTimeout or
// ErrNotHTML so callers can classify them with errors.Is.
//
// # Usage
//
//	r := browser.NewHTTPRenderer(browser.WithMaxBodySize(5 << 20))
//	s, err := r.Open(ctx)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	if err := s.Navigate(ctx, "https://example.com"); err != nil {
//		return err
//	}
//	doc, err := s.Document()
package browser
