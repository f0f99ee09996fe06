package main

import "github.com/ValentinKolb/dNT/cmd"

func main() {
	cmd.Execute()
}
