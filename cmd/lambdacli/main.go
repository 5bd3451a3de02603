package main

import (
	"github.com/robotalks/lambda.go/pkg/cli/sh"
	"github.com/robotalks/lambda.go/pkg/lambda"
)

//go-build: CGO_ENABLED=0

func init() {
	lambda.SetupFlags()
}

func main() {
	sh.Main()
}
