// Command portfolio is the terminal front end for the portfolio chat relay.
package main

import "github.com/mazleon/portfolio-website/internal/cli"

func main() {
	cli.Execute()
}
