package main

import cmd "github.com/rohmanhakim/opendata-harvester/internal/cli"

func main() {
	cmd.Execute()
}
