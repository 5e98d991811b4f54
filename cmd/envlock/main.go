package main

import "envlock/internal/cli"

func main() {
	cli.Execute()
}
