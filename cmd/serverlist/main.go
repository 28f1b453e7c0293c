package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"
)

//go:embed VERSION
var Version string

func main() {
	if err := newRootCmd(strings.TrimSpace(Version)).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
