package main

import (
	"context"
	"os"

	"github.com/mvaleed/ringframe/cmd/ringframe/cmd"
)

func main() {
	if err := cmd.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
