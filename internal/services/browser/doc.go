// Package browser drives a headless Chromium instance for pages that only
// expose their media sources after client-side rendering.
package browser
