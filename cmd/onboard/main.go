package main

import "github.com/novabank/onboard/app"

func main() {
	app.New(nil).Run()
}
