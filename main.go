package main

import "bandsite-backend/cmd"

func main() {
	cmd.Run()
}
