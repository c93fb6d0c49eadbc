// Package staticrouter serves Markdown pages loaded by a content.ContentLoader,
// one chi GET route per page path.
//
// The page index is built once in New and never changes afterwards, so the
// request path takes no locks. A page that names no template in its
// frontmatter is rendered with the router's default template; the page
// itself is never modified.
package staticrouter
