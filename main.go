package main

import "github.com/timeflowlabs/timeflow/cmd"

func main() {
	cmd.Execute()
}
