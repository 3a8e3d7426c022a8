package driven

import "context"

// Renderer flattens a downloaded tablet document into an annotated PDF.
type Renderer interface {
	// Render unpacks the document archive at archivePath and writes the
	// flattened output into outputDir. It returns the path of the produced
	// PDF, whose name is derived from entity. An optional companion export
	// named "<entity> _obsidian.md" may be written next to it.
	Render(ctx context.Context, entity, archivePath, outputDir string) (string, error)
}
