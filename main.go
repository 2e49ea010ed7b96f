package main

import "github.com/kozaktomas/face-compare/cmd"

func main() {
	cmd.Execute()
}
