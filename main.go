package main

import "github.com/oar-cd/skiff/cmd/root"

func main() {
	root.Execute()
}
