// Package pathutil holds path checks shared by content loaders and the page
// handler.
package pathutil

import "strings"

// HasDotSegments reports whether any path segment is "." or "..".
func HasDotSegments(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}

// IsCanonicalURLPath reports whether p is an absolute URL path with no empty,
// dot, or backslash-bearing segments. Page paths are always canonical, so a
// request path failing this check can never match a page.
func IsCanonicalURLPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.ContainsAny(p, "\\\x00") {
		return false
	}
	if p == "/" {
		return true
	}
	inner := strings.TrimSuffix(p[1:], "/")
	for _, seg := range strings.Split(inner, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
