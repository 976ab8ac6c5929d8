package main

import (
	"os"
)

func main() {
	setConsoleUTF8()
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
