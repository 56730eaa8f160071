// The main package for the eventwire executable.
package main

import "github.com/bizkazan/eventwire/cmd"

func main() {
	cmd.Execute()
}
