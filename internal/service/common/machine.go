//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// DetectMachineName returns the name sent to the platform with every logon,
// formatted as "hostname (username)".
func DetectMachineName() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return fmt.Sprintf("%s (%s)", hostname, currentUser.Username), nil
}
