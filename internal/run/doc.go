// Package run manages the working directory, artifact registry, and output
// lock for a single download run.
package run
