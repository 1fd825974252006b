package main

import (
	"log"
	"os"
)

func main() {
	a := app{stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := a.command().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
