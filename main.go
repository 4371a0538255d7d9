// The main package for the rindo executable.
package main

import (
	"github.com/endou0310-byte/rindo/cmd"
)

func main() {
	cmd.Execute()
}
