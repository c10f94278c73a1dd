// Package sandbox runs one test case in an isolated engine and captures its
// contract stream. Two engines exist: a Docker engine that provisions one
// image per declared engine version and runs the entry binary inside it, and
// a local engine that evaluates in-process for development loops where
// isolation is not needed.
package sandbox
