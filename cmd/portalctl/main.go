package main

import "github.com/deployportal-dev/deployportal/internal/cli"

func main() {
	cli.Execute()
}
