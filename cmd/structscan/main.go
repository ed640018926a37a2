package main

import "github.com/structscan/structscan/internal/cli"

func main() {
	cli.Execute()
}
