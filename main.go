package main

import (
	"context"

	"github.com/gaze-network/doginals-indexer/cmd"
)

func main() {
	cmd.Execute(context.Background())
}
