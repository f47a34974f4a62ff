package main

import "github.com/mvp-joe/apisummarizer/internal/cli"

func main() {
	cli.Execute()
}
