package main

import "github.com/brbcoffee/ttcli/cmd"

func main() {
	cmd.Execute()
}
