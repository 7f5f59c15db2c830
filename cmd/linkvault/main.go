package main

import "github.com/JakeFAU/linkvault/cmd"

func main() {
	cmd.Execute()
}
