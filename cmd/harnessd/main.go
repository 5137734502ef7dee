// main.go: harnessd daemon entry point
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package main

import "os"

// version can be set during build with -ldflags
var version = "dev"

func main() {
	os.Exit(Execute(version))
}
