package main

import "github.com/lambalia/eats/cmd"

func main() {
	cmd.Execute()
}
