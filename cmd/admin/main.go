// Command admin runs operator tasks against the game database.
package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	if err := NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
