package main

import "github.com/mvp-joe/solana-fcg/internal/cli"

func main() {
	cli.Execute()
}
