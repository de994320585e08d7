package main

import (
	"context"
	"log"

	"github.com/deployportal-dev/deployportal/internal/portal"
)

func main() {
	if err := portal.App(context.Background()); err != nil {
		log.Fatal(err)
	}
}
