package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/dailydiary/internal/admin"
)

func main() {
	if err := admin.Execute(context.Background()); err != nil {
		os.Exit(1)
	}
}
