package main

import (
	"outpass-control/cmd"

	"github.com/joho/godotenv"
)

func main() {
	// Environment overrides from a local .env file, if present.
	godotenv.Load()

	cmd.Execute()
}
