package discover

import (
	"path"
	"regexp"
	"strings"
)

var (
	hrefRe     = regexp.MustCompile(`href="([^"]*)"`)
	nonSlugRe  = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDash  = regexp.MustCompile(`-{2,}`)
)

// ExtractTargets pulls reference targets out of a page's HTML content:
// relative href links to local .html files, normalized to slugs. External
// URLs, anchors, and absolute paths are ignored. Order is preserved,
// duplicates removed.
func ExtractTargets(content string) []string {
	var targets []string
	seen := make(map[string]bool)

	for _, m := range hrefRe.FindAllStringSubmatch(content, -1) {
		href := strings.TrimSpace(m[1])
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "/") || strings.Contains(href, "://") ||
			strings.HasPrefix(href, "mailto:") {
			continue
		}
		// Drop any fragment or query suffix.
		if i := strings.IndexAny(href, "#?"); i >= 0 {
			href = href[:i]
		}
		if !strings.HasSuffix(href, ".html") {
			continue
		}
		slug := Normalize(strings.TrimSuffix(path.Base(href), ".html"))
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		targets = append(targets, slug)
	}
	return targets
}

// Normalize canonicalizes an identifier to slug form: lowercase,
// space/underscore to dash, everything outside [a-z0-9-] stripped,
// dash runs collapsed.
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = strings.ReplaceAll(s, "_", "-")
	s = nonSlugRe.ReplaceAllString(s, "")
	s = multiDash.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// TitleFor suggests a display title for a slug: "quantum-moss" -> "Quantum Moss".
func TitleFor(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
