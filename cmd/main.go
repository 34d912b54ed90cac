package main

import cmd "github.com/kerbaras/kindlize/cmd/kindlize"

func main() {
	cmd.Execute()
}
