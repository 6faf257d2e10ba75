// Package truncate discovers and applies per-trace truncation windows.
//
// A window is found on the smoothed signal relative to its peak: on each
// flank the edge is the index whose value lies closest to a configured
// fraction of the peak value. Ties resolve to the smallest index, and a
// peak at index zero gives a left edge of zero. Applying a window keeps
// counts inside [left, right) and zeroes everything else.
//
// Windows are keyed by trace ID rather than by position, so a set
// discovered on one snapshot can be applied to another snapshot of the same
// collection without relying on iteration order.
package truncate
