package main

import "github.com/hoangnv-dev/igbridge/cmd"

func main() {
	cmd.Execute()
}
