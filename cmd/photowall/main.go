// Package main provides the photo wall core entry point.
// The core is a library: capture surfaces, rendering, and transport all
// live outside it and embed the wall service directly.
package main

import (
	"fmt"
	"log"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	fmt.Printf("Photo Wall Core v%s\n", Version)
	log.Println("Photo Wall Core - embeddable instant-photo wall library")
}
