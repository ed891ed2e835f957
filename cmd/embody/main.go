// Command embody runs design-direction exploration sessions.
package main

import "github.com/embody-dev/embody/internal/cli"

func main() {
	cli.Execute()
}
