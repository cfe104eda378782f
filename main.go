package main

import (
	"fmt"
	"os"

	"github.com/kilianp07/routeplan/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "routeplan:", err)
		os.Exit(1)
	}
}
