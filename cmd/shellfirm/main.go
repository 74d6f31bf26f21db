// Command shellfirm is the pre-execution guardrail for interactive shell
// sessions and AI coding agents: it inspects a command before it reaches
// the shell and decides whether to forward, challenge, or block it.
package main

import (
	"os"

	"github.com/kaplanelad/shellfirm-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
