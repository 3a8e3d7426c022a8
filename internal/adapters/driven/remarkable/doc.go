// Package remarkable implements driven.TabletClient by shelling out to the
// rmapi command-line tool.
package remarkable
