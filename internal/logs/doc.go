// Package logs reads the rotating run log for `stemsep logs`.
//
// Only complete lines are returned, so a record being written while the file
// is read is picked up whole on the next poll. Follow notices when the log is
// rotated (the file shrinks) and starts over at the beginning of the new file.
package logs
