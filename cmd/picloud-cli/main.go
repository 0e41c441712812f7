// Package main is the entry point for the picloud command line client.
//
// Usage:
//
//	picloud-cli [flags] <command> [args]
//
// Commands:
//
//	upload    - Upload a local file to the server
//	download  - Download a stored file
//	delete    - Delete a stored file
//	list      - List all stored files
package main

import (
	"fmt"
	"os"

	"github.com/picloudlabs/picloud/cmd/picloud-cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
