// Package assemble concatenates fetched segments into a single transport
// stream in manifest order.
package assemble
