package main

import "github.com/docflow/apiserver/cmd"

func main() {
	cmd.Execute()
}
