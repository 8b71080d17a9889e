package main

import "github.com/KaramelBytes/officeloom/cmd"

func main() {
	cmd.Execute()
}
