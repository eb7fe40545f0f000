// Package services defines shared utilities consumed by the job pipeline and
// its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - The Failure type and stage markers that classify every job error as a
//     validation, fetch, or transcode failure.
//   - The Wrap helper for non-job errors (configuration, storage) so they read
//     consistently in logs.
//
// Callers branch on the stage with StageOf or errors.Is against the exported
// sentinels; they never parse error strings.
package services
