// Package manifest derives the playlist URL from a discovered video
// reference and resolves it into an ordered segment list.
package manifest
