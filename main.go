package main

import "github.com/flowsolve/gosles/cmd"

func main() {
	cmd.Execute()
}
