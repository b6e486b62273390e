// Package progress persists the set of input files that have been fully
// separated and merged, so interrupted runs resume without reprocessing.
//
// Two backends implement Store: a JSON array file (the default, compatible
// with earlier progress.json files) and a SQLite table. Both treat the set as
// grow-only during a run; entries leave only through an explicit Remove issued
// by an operator. A flock-based Lock keeps a single writer per output
// directory.
package progress
