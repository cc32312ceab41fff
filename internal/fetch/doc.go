// Package fetch downloads manifest segments concurrently over a bounded
// worker pool with per-segment retry budgets.
package fetch
