package main

import "github.com/johnrirwin/youthinvest/internal/cli"

func main() {
	cli.Execute()
}
