// better-tor - Tor transparent proxy toggle
package main

import "github.com/better-ecosystem/better-tor/internal/cli"

func main() {
	cli.Execute()
}
