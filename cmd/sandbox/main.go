package main

import (
	"context"
	"fmt"
	"os"
)

func main() {
	if err := newApp().execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
