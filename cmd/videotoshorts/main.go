package main

import "github.com/boopesh07/VideoToShorts/internal/cli"

func main() {
	cli.Main()
}
