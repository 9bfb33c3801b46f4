// Package preflight checks that hvsearch can serve before it is started.
//
// The checks cover:
//   - The configured index can be fetched and decoded
//   - Each embedding provider can be loaded
//   - The remote index cache directory is writable and has free space
//
// Only the index check is critical. A missing provider degrades answers to
// the remaining providers or the substring matcher, so it is a warning.
//
//	checker := preflight.New(preflight.WithOutput(os.Stdout))
//	results := checker.RunAll(ctx, target)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
