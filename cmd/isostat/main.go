// isostat - Isotope-labeling metabolomics statistics
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/isostat/cmd/isostat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
