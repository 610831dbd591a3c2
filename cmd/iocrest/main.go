package main

import "github.com/neko233-com/iocrest-go/internal/cli"

func main() {
	cli.Execute()
}
