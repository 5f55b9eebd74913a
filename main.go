package main

import "github.com/ssrsss/API-Check/cmd"

func main() {
	cmd.Execute()
}
