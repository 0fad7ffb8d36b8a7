package main

import "github.com/oshokin/gmpublish/cmd/workshop-gateway/cmd"

func main() {
	cmd.Execute()
}
