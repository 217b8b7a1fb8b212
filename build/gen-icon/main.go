//go:build ignore

// gen-icon writes the tray icons as PNG files for packaging.
// Usage: go run build/gen-icon/main.go [output-dir]
//
// better-tor.png (the active icon) is referenced by the .desktop entry.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/better-ecosystem/better-tor/internal/tray"
)

func main() {
	outDir := "build/linux/icons"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	files := map[string]string{
		"better-tor.png":          "active",
		"better-tor-inactive.png": "inactive",
		"better-tor-busy.png":     "busy",
		"better-tor-error.png":    "error",
	}
	for name, state := range files {
		path := filepath.Join(outDir, name)
		data := tray.GetIcon(state)
		if err := os.WriteFile(path, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s (%d bytes)\n", path, len(data))
	}
}
