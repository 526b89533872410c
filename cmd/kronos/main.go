package main

import "github.com/outofforest/kronos"

func main() {
	kronos.Main()
}
