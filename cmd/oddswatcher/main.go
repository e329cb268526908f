package main

import "super-odds-alerts/internal/cli"

func main() {
	cli.Execute()
}
