//go:build !windows

package util

// IsRunFromGUI reports whether the process was started by double-click.
// Only Windows has that notion.
func IsRunFromGUI() bool {
	return false
}
