package main

import "github.com/notargets/wenohybrid/cmd"

func main() {
	cmd.Execute()
}
