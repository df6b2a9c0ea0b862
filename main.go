package main

import (
	"github.com/praetorian-inc/vantage/cmd"
)

func main() {
	cmd.Execute()
}
