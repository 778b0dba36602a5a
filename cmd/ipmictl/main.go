// Command ipmictl runs IPMI operations against a single node and prints
// the parsed result as JSON.
//
// A node is either picked from a node config file:
//
//	ipmictl --config /etc/baremetal/nodes.yaml --node rack1-u10 power status
//
// or described entirely on the command line:
//
//	ipmictl -H 10.0.0.11 -U ADMIN -P secret -L ADMINISTRATOR chassis status
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(newCLI(os.Stdout)).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
