package main

import "kbchat/cmd"

func main() {
	cmd.Execute()
}
