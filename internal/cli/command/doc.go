// Package command defines the statekeep command line using urfave/cli/v2.
//
//   - root.go: the App, global flags and per-command setup
//   - run.go: run a demo population under periodic checkpointing
//   - workload.go: the demo population
//   - inspect.go: read-only views of a store (inspect, index, gc)
//   - keygen.go: encryption key and salt generation
//   - version.go: build information
package command
