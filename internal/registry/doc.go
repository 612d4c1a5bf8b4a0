// Package registry owns the fixed table of channels and the open/close
// bookkeeping around them.
//
// The table length and each channel's identity are fixed at construction;
// only buffer capacities change at runtime. Access policy (single-writer
// enforcement, per-channel opener limits) lives entirely here; the channel
// core itself places no limit on concurrent readers or writers.
package registry
