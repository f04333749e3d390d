package main

import (
	"fmt"
	"os"

	"contrato-firma/internal/app"
)

func main() {
	if err := app.NewApplication().Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
