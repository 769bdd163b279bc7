package main

import (
	"github.com/BioHazard786/Keydrop/cli/cmd"
	"github.com/BioHazard786/Keydrop/cli/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
