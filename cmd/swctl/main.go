package main

import (
	"github.com/swiftwave-org/swctl/pkg/cli/cmd"
)

func main() {
	cmd.Execute()
}
