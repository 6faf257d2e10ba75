// Package trace defines the spectral acquisition entity shared by every
// pipeline stage: a trace couples a wavenumber axis, a wavelength axis, and
// an intensity (counts) array of equal length, identified by the name of the
// file it was loaded from.
//
// A Collection keeps traces sorted ascending by id so that sibling
// collections built from the same dataset stay positionally aligned through
// the pipeline. Stage packages never mutate a collection they receive; they
// clone and return new ones.
package trace
