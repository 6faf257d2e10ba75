// Package smooth applies Gaussian smoothing to trace counts.
//
// The kernel follows the common scientific convention: weights are
// exp(-k^2 / (2*sigma^2)) for k in [-r, r] with r = int(4*sigma + 0.5),
// normalized to unit sum. Boundaries reflect about the array edge with the
// edge sample included, so index -1 maps to 0, -2 to 1, and n to n-1. A
// constant signal therefore passes through unchanged.
package smooth
