// Package preflight validates external tools and directory access before a
// download run starts.
package preflight
