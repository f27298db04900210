package main

import "github.com/vibast-solutions/ms-go-payment-hub/cmd"

func main() {
	cmd.Execute()
}
