// Command linkstat reports directory statistics with hard-link aware totals.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/idelchi/linkstat/internal/cli"
)

// version is set at build time.
var version = "unknown - unofficial & generated by unknown"

func main() {
	if err := cli.New(version).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "linkstat: %v\n", err)

		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fmt.Fprintln(os.Stderr, cli.Usage)
		}

		os.Exit(1)
	}
}
