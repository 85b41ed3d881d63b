package main

import "github.com/mvp-joe/jstruct/internal/cli"

func main() {
	cli.Execute()
}
