// Command httpmsg inspects HTTP messages: it renders URIs, reads raw
// requests and upload descriptions, and serves an echo endpoint that
// answers with the parsed request.
package main

import (
	"fmt"
	"os"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
