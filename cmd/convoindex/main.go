// Command convoindex indexes and searches local coding-assistant
// conversation logs.
package main

import "github.com/convoindex/convoindex/cmd"

func main() {
	cmd.Execute()
}
