package main

import "github.com/djcass44/apt-depot/cmd"

var version = "develop"

func main() {
	cmd.Execute(version)
}
