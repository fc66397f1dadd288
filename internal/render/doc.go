// Package render turns authoring HTML into deployable pages for one render
// target. A page passes through an ordered chain of text transforms:
//
//	include resolution -> placeholder -> pictures -> link normalization -> minify
//
// The chain is a pure function of the source tree and the target, so the Root
// and BasePrefixed outputs can only differ where the base path is used.
package render
