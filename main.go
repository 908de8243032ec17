package main

import "github.com/liamg/netradar/cmd"

func main() {
	cmd.Execute()
}
