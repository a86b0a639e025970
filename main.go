package main

import "github.com/masteryee/nest-events/cmd"

func main() {
	cmd.Execute()
}
