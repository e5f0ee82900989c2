// Package main is the entry point for the hallmetrics CLI tool, which
// accumulates daily gaming-hall unit results and ranks units by expected
// favorability.
package main

import "github.com/hmori/go-hall-metrics/cmd"

func main() {
	cmd.Execute()
}
