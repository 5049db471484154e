package normalize

import "strings"

// ResolveURL turns a possibly-relative href into an absolute URL against the
// given base. Four shapes occur in marketplace markup: already-absolute,
// scheme-relative ("//host/path"), root-relative ("/path"), and bare-relative
// ("path"). Base is expected without a trailing slash.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if strings.HasPrefix(ref, "//") {
		return "https:" + ref
	}
	base = strings.TrimSuffix(base, "/")
	if strings.HasPrefix(ref, "/") {
		return base + ref
	}
	return base + "/" + ref
}
