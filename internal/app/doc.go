// Package app wires configuration, logging, and the sandbox engine into a
// runnable batch application. The CLI builds a Config, the App picks the
// engine and drives the runner, and the summary's failure count becomes the
// process exit code.
package app
