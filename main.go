package main

import "github.com/zalepa/evpop/cmd"

func main() {
	cmd.Execute()
}
