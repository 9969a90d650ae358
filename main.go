package main

import "github.com/paritytech/parity-bridges-common/cmd"

func main() {
	cmd.Execute()
}
