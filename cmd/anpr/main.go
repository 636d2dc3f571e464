package main

import "github.com/MeKo-Tech/anpr/cmd/anpr/cmd"

func main() {
	cmd.Execute()
}
