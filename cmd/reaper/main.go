package main

import "github.com/Paintersrp/reaper/internal/cli"

func main() {
	cli.Execute()
}
