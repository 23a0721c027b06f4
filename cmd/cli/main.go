// Command tcsched builds, runs, and benchmarks hierarchical traffic-class
// scheduling trees.
package main

import "github.com/pktsched/pktsched/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
