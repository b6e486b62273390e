// Package procstream runs an external command and relays its stdout and
// stderr live to the caller's writers.
//
// Both pipes are waited on together with poll(2) and whichever is readable is
// drained one chunk at a time, so a child that fills one pipe while the other
// is idle can never block the relay. Output is decoded as UTF-8 with invalid
// sequences replaced. The exit status is collected only after both streams
// reach end of file.
package procstream
