// Command memtrace reports access statistics of memory traces.
package main

import "github.com/sarchlab/memtrace/memtrace/cmd"

func main() {
	cmd.Execute()
}
