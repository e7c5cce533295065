package main

import "room-mapper/cmd"

func main() {
	cmd.Execute()
}
