package main

import "github.com/JadedBlueEyes/libretto/cmd"

func main() {
	cmd.Execute()
}
