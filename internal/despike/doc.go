// Package despike removes cosmic-ray artifacts from spectral traces.
//
// Cosmic rays show up as spurious spikes one or two points wide that exceed
// the surrounding signal by hundreds or thousands of counts. A centered
// rolling median tracks the local baseline; points rising more than a
// threshold above it are flagged and replaced with the floored mean of the
// nearest clean neighbor on each side.
//
// Detection and replacement are two strict passes over an immutable
// snapshot: flagging at one index never depends on a replacement made at
// another, and replacement values are always read from pre-replacement data.
package despike
