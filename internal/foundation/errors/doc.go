// Package errors provides the classified error primitives used across sitebuild.
//
// Key features:
//   - ErrorCategory: broad classification (config, include, image, toolchain, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - ClassifiedError: structured error with category, severity and context
//   - ErrorBuilder: fluent API for creating classified errors
//   - CLIErrorAdapter: exit codes and user-facing messages
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryImage, "encode derivative").
//		WithContext("image", "hero.jpg").
//		WithContext("width", 1200).
//		Build()
//
// The build never retries: every error category is either fatal for the
// current run or a recorded warning.
package errors
