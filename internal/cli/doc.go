// Package cli parses the command line of the batch driver into an
// app.Config. Validation failures surface as ExitError so main can exit
// with a conventional usage code without conflating it with test failures.
package cli
