// Package organizer merges the per-model outputs for one input file into a
// single stem directory under the output root.
//
// Each configured model owns a fixed, disjoint set of stems; only those stems
// are taken from that model's subtree, and only when the file exists. Whether a
// partial stem set counts as done is decided by the MinStems policy.
package organizer
