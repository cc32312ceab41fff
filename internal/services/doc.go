// Package services defines the shared error taxonomy and context carriers
// used across pipeline stages, plus subpackages wrapping the external
// collaborators (HTTP client, browser renderer, conversion tool).
package services
