// Package watch re-runs a function whenever files under the control store
// change, collapsing bursts of events into one call.
package watch
