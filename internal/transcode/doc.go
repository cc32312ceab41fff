// Package transcode remuxes the assembled stream into the final container
// and promotes it to the output path.
package transcode
