// ABOUTME: Entry point for calyra CLI.
// ABOUTME: Invokes the root Cobra command and releases the store on exit.
package main

import (
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	if cerr := shutdown(); err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
