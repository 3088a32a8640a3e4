package main

import "github.com/oshokin/release-keeper/cmd/release-keeper/cmd"

func main() {
	cmd.Execute()
}
