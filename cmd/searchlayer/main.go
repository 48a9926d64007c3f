package main

import "github.com/mkweon/searchlayer/internal/cli"

func main() {
	cli.Execute()
}
