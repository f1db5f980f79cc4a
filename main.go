// ABOUTME: Entry point for remix-studio
// ABOUTME: Hands off to the command tree, which routes to the studio, headless flows or the stub backend

// Package main provides the entry point for remix-studio, a remix and track creation client.
package main

import (
	"os"

	"remix-studio/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
