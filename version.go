// Package policykeeper provides the release version of the policy approval
// and versioning engine.
package policykeeper

// Version is the current release of policykeeper.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
