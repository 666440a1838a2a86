package main

import "github.com/ruxgo-build/ruxgo/cmd"

func main() {
	cmd.Execute()
}
