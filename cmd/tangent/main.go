// Package main provides the Tangent framework CLI.
package main

import (
	"fmt"
	"os"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("Tangent %s\n", version)
		return
	}

	fmt.Println("Tangent - Forward-Mode Automatic Differentiation for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("")
	fmt.Println("See examples/jvp for a walkthrough of the dual-number API.")
}
