package main

import "gwi.com/testcase-dashboard/internal/cli"

func main() {
	cli.Execute()
}
