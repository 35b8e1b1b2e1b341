// gen-diagrams writes sample renderings of a bundled conversation into docs/assets.
// Run: go run ./cmd/gen-diagrams [conversation file]
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rendis/convograph/internal/diagram"
	"github.com/rendis/convograph/pkg/schema"
)

func main() {
	src := filepath.Join("examples", "conversations", "blacksmith.json")
	if len(os.Args) > 1 {
		src = os.Args[1]
	}

	def, _, err := schema.LoadFile(src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load error: %v\n", err)
		os.Exit(1)
	}

	model, err := diagram.Build(def, diagram.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build error: %v\n", err)
		os.Exit(1)
	}

	outDir := filepath.Join("docs", "assets")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir error: %v\n", err)
		os.Exit(1)
	}
	ctx := context.Background()

	// ASCII (mermaid-ascii with built-in fallback)
	home, _ := os.UserHomeDir()
	binDir := filepath.Join(home, ".convograph", "bin")
	ascii := diagram.RenderASCIIAuto(ctx, model, binDir)
	write(filepath.Join(outDir, "diagram-ascii.txt"), []byte(ascii))
	fmt.Println("=== ASCII ===")
	fmt.Println(ascii)

	// Mermaid
	mermaid := diagram.RenderMermaid(model)
	write(filepath.Join(outDir, "diagram-mermaid.md"), []byte("```mermaid\n"+mermaid+"\n```\n"))
	fmt.Println("=== Mermaid ===")
	fmt.Println(mermaid)

	// Renderer payload
	payload, err := diagram.RenderJSON(model)
	if err != nil {
		fmt.Fprintf(os.Stderr, "json error: %v\n", err)
	} else {
		write(filepath.Join(outDir, "diagram-layout.json"), payload)
		fmt.Printf("=== Layout JSON ===\nWritten: %d nodes, %d edges\n", len(model.Nodes), len(model.Edges))
	}

	// Image (PNG)
	png, imgErr := diagram.RenderImage(ctx, model)
	if imgErr != nil {
		fmt.Fprintf(os.Stderr, "image error: %v\n", imgErr)
	} else {
		pngPath := filepath.Join(outDir, "diagram-sample.png")
		write(pngPath, png)
		fmt.Printf("=== Image (PNG) ===\nWritten: %s (%d bytes)\n", pngPath, len(png))
	}
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
	}
}
