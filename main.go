package main

import "github.com/iksnae/fale-com-deus/cmd"

func main() {
	cmd.Execute()
}
