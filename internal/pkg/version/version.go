package version

import "fmt"

// Version components of bgplsd and bgplsctl.
const (
	MAJOR uint = 0
	MINOR uint = 1
	PATCH uint = 0
)

// Version returns the semantic version string, e.g. "0.1.0".
func Version() string {
	return fmt.Sprintf("%d.%d.%d", MAJOR, MINOR, PATCH)
}
