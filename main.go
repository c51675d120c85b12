package main

import "github.com/nextlevelbuilder/memvault/cmd"

func main() {
	cmd.Execute()
}
