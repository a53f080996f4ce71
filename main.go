// Package main is the entry point of luascan, a lexical scanner that finds
// Lua function definitions, their nesting and the globally visible subset.
package main

import "luascan/cmd"

func main() {
	cmd.Execute()
}
