package main

import (
	"os"

	"github.com/yungbote/agentic-studio/cmd/studioctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
