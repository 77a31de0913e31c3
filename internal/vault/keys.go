package vault

import (
	"fmt"
	"path"
	"strings"
)

// cleanKey validates an archive key. Keys are slash-separated relative paths
// with no empty, "." or ".." segments.
func cleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("archive key is empty")
	}
	if strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return "", fmt.Errorf("archive key %q must be relative", key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("archive key %q has an invalid segment", key)
		}
	}
	return path.Clean(key), nil
}
