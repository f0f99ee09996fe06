// Package cmd implements the command-line interface of dNT. It provides a
// hierarchical command structure for running the server and for working
// with its entries as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Starts and configures the dNT server
//   - tables: Network tables operations (get, set, edit, list, connections, ...)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dnt -help for a list of all commands.
package cmd
