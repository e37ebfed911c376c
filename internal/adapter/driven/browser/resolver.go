// Package browser implements the DomainResolver port: classifying samples
// from recognized browser processes by the visited domain.
package browser

import (
	"context"
	"regexp"
	"strings"

	"github.com/ericfisherdev/timepanel/internal/domain/model"
	"github.com/ericfisherdev/timepanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DomainResolver = (*Resolver)(nil)

// defaultBrowsers is the recognized-browser set, keyed by process name with
// any ".exe" suffix stripped and lowercased.
var defaultBrowsers = map[string]struct{}{
	"chrome":   {},
	"chromium": {},
	"msedge":   {},
	"firefox":  {},
	"brave":    {},
	"opera":    {},
	"vivaldi":  {},
	"safari":   {},
}

// hostPattern matches a URL or bare host embedded in a window title. Browsers
// commonly render "Page Title - host/path" or a full URL; the first such
// token is taken as the visited location.
var hostPattern = regexp.MustCompile(`(?:https?://)?((?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,})(?::\d+)?(?:/\S*)?`)

// Resolver extracts visited domains from browser window state. Resolution is
// a potentially slow call; Resolve honors the caller's context deadline and
// degrades to "no domain" on expiry instead of failing the sample.
type Resolver struct {
	browsers map[string]struct{}
}

// NewResolver builds a resolver over the default recognized-browser set plus
// any extra process names from configuration.
func NewResolver(extraBrowsers []string) *Resolver {
	browsers := make(map[string]struct{}, len(defaultBrowsers)+len(extraBrowsers))
	for name := range defaultBrowsers {
		browsers[name] = struct{}{}
	}
	for _, name := range extraBrowsers {
		if n := canonicalProcess(name); n != "" {
			browsers[n] = struct{}{}
		}
	}
	return &Resolver{browsers: browsers}
}

// IsBrowser reports whether the process name is in the recognized-browser
// set. Matching is case-insensitive and ignores a ".exe" suffix.
func (r *Resolver) IsBrowser(processName string) bool {
	_, ok := r.browsers[canonicalProcess(processName)]
	return ok
}

// Resolve extracts the visited domain from the sample's window state. It
// returns "" for non-browser processes, when no host can be located, or when
// the context deadline expires first. Resolve never returns an error.
func (r *Resolver) Resolve(ctx context.Context, sample model.Sample) string {
	if !r.IsBrowser(sample.ProcessName) {
		return ""
	}

	result := make(chan string, 1)
	go func() {
		result <- extractDomain(sample.WindowTitle)
	}()

	select {
	case domain := <-result:
		return domain
	case <-ctx.Done():
		// Overrun counts as "no domain available"; the goroutine's late
		// result is discarded via the buffered channel.
		return ""
	}
}

// extractDomain locates a URL or bare host in the title and normalizes it.
func extractDomain(title string) string {
	match := hostPattern.FindStringSubmatch(title)
	if match == nil {
		return ""
	}
	return NormalizeHost(match[1])
}

// NormalizeHost canonicalizes a host string: lowercase, scheme, path, port,
// and leading "www." stripped. It returns "" when the input does not look
// like a host.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimPrefix(host, "https://")

	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")

	// A domain needs at least one dot and no spaces.
	if !strings.Contains(host, ".") || strings.ContainsAny(host, " \t") {
		return ""
	}

	return host
}

// canonicalProcess lowercases a process name and strips a ".exe" suffix so
// Windows and Unix process names compare equal.
func canonicalProcess(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}
