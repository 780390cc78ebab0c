package main

import "github.com/udlna/udlna/cmd"

func main() {
	cmd.Execute()
}
