package main

import "github.com/Tiliavir/babytalk/cmd"

func main() {
	cmd.Execute()
}
