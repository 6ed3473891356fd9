// Package main - simctl CLI
// Runs the simulation engine from the terminal
//
// Usage:
//
//	go run ./cmd/simctl simulate --actif etf --initial 1000 --contribution 100 --debut 2015 --fin 2024
//	go run ./cmd/simctl warm-cache --debut 2000 --fin 2025
package main

import (
	"os"

	"github.com/hamsalma/finance-site/cmd/simctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
