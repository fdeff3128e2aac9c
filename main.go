package main

import "github.com/mouse-blink/phpguard/cmd"

func main() {
	cmd.Execute()
}
