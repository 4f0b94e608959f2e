package main

import (
	"github.com/MeKo-Tech/docslice/cmd/docslice/cmd"
)

func main() {
	cmd.Execute()
}
