package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/khaledhikmat/fit-coach/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}
