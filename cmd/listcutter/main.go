package main

import (
	"os"

	"github.com/JonMunkholm/listcutter/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
