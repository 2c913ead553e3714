// Package viz renders fit results for the terminal.
//
//   - [Analysis]: pooled and grouped parameter tables plus the F-test line
//   - [Preview]: an ASCII chart of the fitted curves
//   - [SparklineChart]: a one-line residual trace per group
//
// Output is plain text with lipgloss styling; styles degrade to no colour when
// stdout is not a terminal.
package viz
