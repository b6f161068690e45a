package main

import (
	"fmt"
	"os"

	"github.com/harrison/cukeguard/internal/cmd"
	"github.com/joho/godotenv"
)

func main() {
	// A project .env may set CUKEGUARD_HOME; a missing file is fine.
	_ = godotenv.Load()

	rootCmd := cmd.NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
