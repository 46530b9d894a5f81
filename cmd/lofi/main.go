// Package main is the lofi command: run, inspect, and render
// production-system models.
//
//   lofi run models/lofi-cafe.yaml --param customer_choice=oat_milk
//   lofi crew models/lofi-cafe.yaml --agent a --agent b:customer_choice=oat_milk
//   lofi dot models/lofi-cafe.yaml | dot -Tpng > cafe.png
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
