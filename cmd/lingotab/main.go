package main

import (
	"os"

	"github.com/lingotab/lingotab/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
