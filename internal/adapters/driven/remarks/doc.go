// Package remarks implements driven.Renderer with the remarks tool, which
// flattens reMarkable notebooks and their annotations into PDFs.
package remarks
