package main

import "github.com/BioB3/Flight-within-USA-Displayer/src/cmd"

func main() {
	cmd.Execute()
}
