// Package assets builds the shared, target-independent site assets: the
// stylesheet (external CSS tool), minified ES modules (esbuild) and the
// static files copied verbatim from the source tree.
package assets
