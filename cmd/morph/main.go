package main

import (
	"os"

	"horse.fit/morph/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
