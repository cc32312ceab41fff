// Package ffmpeg invokes the external conversion tool as a subprocess with a
// bounded execution timeout and maps its failures onto the pipeline error
// taxonomy.
package ffmpeg
