package main

import "github.com/xbklairith/aubit-poly/cmd"

func main() {
	cmd.Execute()
}
