// swatchpath - colour gradients built from real textures
//
// swatchpath clusters the textures of a palette by colour and extracts
// successive, diverging gradients between two of them.
//
// Copyright (c) 2025 John Mylchreest
// Licensed under the MIT License
package main

import (
	"github.com/jmylchreest/swatchpath/internal/cli"
)

func main() {
	cli.Execute()
}
