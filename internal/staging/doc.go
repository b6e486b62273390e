// Package staging manages the per-batch scratch directories the separator
// writes into, and sweeps leftovers from runs that crashed before cleanup.
package staging
