// Package preflight provides readiness checks for the directories and
// external tools a separation run depends on.
//
// These checks run in two contexts:
//   - "stemsep run" calls RunAll before taking the output lock and refuses
//     to start when a check fails, so a doomed run never reaches the model.
//   - "stemsep check" renders every result, including optional tools and the
//     accelerator probe, as a table.
package preflight
