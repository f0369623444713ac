package main

import (
	"github.com/hbcalsoft/nsx-v2t/cmd"
)

func main() {
	cmd.Execute()
}
