package main

import "github.com/dmaier/catalog-crawler/cmd"

func main() {
	cmd.Execute()
}
