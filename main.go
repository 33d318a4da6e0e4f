package main

import "github.com/MARRISLHARRIS/gradle/cmd"

func main() {
	cmd.Execute()
}
