// Package main provides the entry point for the symptom chatbot.
package main

import (
	"fmt"
	"os"

	"symptom-chatbot/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
