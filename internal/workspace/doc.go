// Package workspace manages the directories a build writes into before its
// results become visible: an ephemeral timestamped workspace for shared
// intermediate output, and per-target staging directories that are promoted
// over the final output only after the whole target succeeded.
package workspace
