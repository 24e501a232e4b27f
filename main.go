package main

import "github.com/crystaldolphin/friday/cmd"

func main() {
	cmd.Execute()
}
