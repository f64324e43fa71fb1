// Command evmod compiles, evaluates and replays event modifier expressions.
package main

import (
	"os"
)

func main() {
	os.Exit(execute(newGlobalState(), os.Args[1:]))
}
