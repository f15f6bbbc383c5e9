package integration

import "fmt"

// TestUser returns a unique email and display name for suffix
func TestUser(suffix string) (email, name string) {
	return fmt.Sprintf("user-%s@curalink.test", suffix), "Test User " + suffix
}
