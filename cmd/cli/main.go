package main

import "github.com/graph-analytics/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
