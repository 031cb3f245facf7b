// Package cli implements the accountkeeper command line: one-shot
// subcommands and an interactive shell over the same command set.
package cli
