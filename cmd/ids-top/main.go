// Command ids-top is a terminal dashboard for realtime network intrusion
// alerts.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "ids-top: %v\n", err)
		os.Exit(1)
	}
}
