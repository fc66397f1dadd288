// Package build runs a complete site build: the shared asset stages (CSS,
// JS, images) followed by rendering every target into a staging directory.
// Targets are promoted over their previous output only when the whole build
// succeeded, so a failed build leaves the last good output in place.
//
// Every run produces a BuildReport. Persist writes it atomically.
package build
