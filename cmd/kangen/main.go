// Command kangen wires the reflection registry, generator driver, migration
// engine and universe resource-reference manager against a workspace
// directory on disk.
package main

import (
	"fmt"
	"os"

	"github.com/kanrt/kan/cmd/kangen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
