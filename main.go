package main

import (
	"log"

	"ticket-tracker/cmd"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	if err := cmd.Start(); err != nil {
		log.Fatal(err)
	}
}
