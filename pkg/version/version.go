// Package version holds build metadata set with -ldflags -X.
package version

import "fmt"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Host identifies this build in journal events.
func Host() string {
	return fmt.Sprintf("zygiskhost/%s", Version)
}
