package main

import "github.com/GerritCodeReview/plugins-gitgroups/cmd/groupsd/cmd"

func main() {
	cmd.Execute()
}
