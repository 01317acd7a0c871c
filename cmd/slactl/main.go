package main

import "github.com/SumanthNagolu/intime-v3-sub032/cmd/slactl/cmd"

func main() {
	cmd.Execute()
}
