package main

import "github.com/noah-isme/aws-pricing-api/cmd/pricingctl/commands"

func main() {
	commands.Execute()
}
