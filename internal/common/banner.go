package common

import (
	"github.com/ternarybob/banner"
)

// PrintBanner prints the startup banner with the running version.
func PrintBanner(version string) {
	banner.PrintSimple("CaseStrainer", version)
}
