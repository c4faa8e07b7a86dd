// Package preflight checks that the machine can clone, embed and store the
// documentation before amandocs is pointed at it.
//
// The checks cover:
//   - git on PATH, needed to clone and update repositories
//   - a writable data directory with room for the clones and the store
//   - the file descriptor limit
//   - the configured embedder, including reaching Ollama
//   - whether the index has been built
//
// Use the Checker type to run them all:
//
//	checker := preflight.New()
//	results := checker.RunAll(ctx, cfg)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
