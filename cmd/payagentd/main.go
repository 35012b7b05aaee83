package main

import "github.com/Mrinallcx/payagent-core/cmd"

func main() {
	cmd.Execute()
}
