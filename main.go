package main

import "github.com/anmicius0/unit-batch-station/cmd"

func main() {
	cmd.Execute()
}
