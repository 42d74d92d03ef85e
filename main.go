package main

import "tendril/cmd"

func main() {
	cmd.Execute()
}
