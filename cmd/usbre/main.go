package main

import "github.com/OpenTraceLab/OpenTraceUSB/cmd/usbre/cmd"

func main() {
	cmd.Execute()
}
