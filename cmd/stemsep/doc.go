// Command stemsep splits a directory of recordings into per-instrument stems.
//
// The run command discovers unprocessed recordings, drives the separator over
// them in batches, and merges each file's stems into its own directory under
// the output root. Progress is checkpointed after every merged file so an
// interrupted run resumes where it stopped. The remaining commands inspect
// and maintain that state: status, progress forget, staging, check, and
// config.
package main
