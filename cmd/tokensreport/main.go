package main

import "tokens-report/internal/cli"

func main() {
	cli.Execute()
}
