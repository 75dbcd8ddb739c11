// Command classvis checks compiled JVM classes against annotation-declared
// visibility rules.
package main

import (
	"os"

	"classvis/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
