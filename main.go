package main

import (
	"log"

	"github.com/dadosbr/agregador/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
