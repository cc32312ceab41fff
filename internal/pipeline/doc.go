// Package pipeline sequences the download stages of one run: manifest
// resolution, segment fetch, assembly, and conversion.
package pipeline
