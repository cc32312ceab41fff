// Package webclient provides the bounded-timeout HTTP GET used by the
// manifest resolver and segment fetcher, plus the transient/permanent
// failure classification that drives their retry policies.
package webclient
