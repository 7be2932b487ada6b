// Package main is the entry point for openvpn-backup.
package main

import (
	"os"
)

func main() {
	// Inside the Lambda runtime there are no CLI arguments to parse.
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		rootCmd.SetArgs([]string{"lambda", "--json"})
	}

	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
