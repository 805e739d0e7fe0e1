package main

import "github.com/deep3/social/cmd"

func main() {
	cmd.Execute()
}
