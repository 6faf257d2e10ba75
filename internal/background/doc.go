// Package background matches background acquisitions to sample traces by
// detector key and subtracts them.
//
// A sample and a background belong together when the rounded medians of
// their wavelength axes agree. More than one background matching the same
// sample is resolved by a configurable policy; the default refuses to guess
// and fails the run.
package background
