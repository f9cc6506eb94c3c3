// Package main provides the entry point for the carfctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/eunhhu/carf-sub000/cmd/carfctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
