package main

import (
	"mps-price-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
