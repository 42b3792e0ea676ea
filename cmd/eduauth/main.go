// eduauth signs in to the learning platform from a terminal and keeps the
// session between invocations.
//
// Usage:
//
//	eduauth login --email ada@school.test
//	eduauth whoami
//	eduauth logout
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/MrEthical07/eduAuth/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
