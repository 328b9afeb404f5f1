/*
 * Copyright (c) 2024 Johan Stenstam, johani@johani.org
 */
package main

import "github.com/axfrnet/ddnsd/cmd/ddnsctl/cmd"

func main() {
	cmd.Execute()
}
