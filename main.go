package main

import (
	"fmt"
	"os"

	"github.com/icarus-itcs/simyard/cmd/simyard"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := simyard.Execute(version, commit, date); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
