package main

import "github.com/oshokin/gmpublish/cmd/gmpublish/cmd"

func main() {
	cmd.Execute()
}
