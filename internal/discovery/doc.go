// Package discovery locates video-review references on a rendered product
// page. It consumes the Page capability only; the browser engine behind it
// lives in services/browser.
package discovery
