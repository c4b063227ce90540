package redis

import (
	"fmt"

	"github.com/user/bizanalyzer/pkg/utils"
)

const keyPrefix = "bizanalyzer:run:"

func runKey(runID, suffix string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, runID, suffix)
}

// visitedMember hashes the canonical URL so set members stay short and safe.
func visitedMember(canonicalURL string) string {
	return utils.HashURL(canonicalURL)
}
