package main

import (
	"os"

	"github.com/b0bbywan/go-myra/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
