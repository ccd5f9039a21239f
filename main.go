package main

import "github.com/recipebox/recipebox/cmd"

func main() {
	cmd.Execute()
}
