// Package testing contains fixture and assertion helpers shared by the
// command and build tests.
package testing

const (
	testDirPermissions  = 0o750
	testFilePermissions = 0o600
)
