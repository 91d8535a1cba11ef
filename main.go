package main

import "smallsh.dev/smallsh/cmd"

func main() {
	cmd.Execute()
}
