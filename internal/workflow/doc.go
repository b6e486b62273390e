// Package workflow runs the end-to-end separation over an input directory.
//
// The Manager takes the output lock, loads the processed set, sweeps leftover
// scratch directories, discovers pending files, and partitions them into
// fixed-size batches. Batches run strictly one after another: each gets a
// fresh scratch directory, every configured model runs over it in order, and
// only when all models succeed are the files merged one by one. A file is
// recorded as processed, and the store flushed, immediately after its merge.
//
// A failing or panicking batch is logged and counted, and the loop moves on.
// Cancellation is honoured before each model run and before each file merge;
// the scratch directory is always removed on the way out.
package workflow
