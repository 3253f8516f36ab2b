// Package main provides the pantry CLI.
package main

import "github.com/pantrywisely/pantry/internal/cli"

func main() {
	cli.Execute()
}
