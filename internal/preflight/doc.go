// Package preflight provides readiness checks for the external tools and
// filesystem paths that lofi depends on.
//
// These checks run in two contexts:
//   - `lofi serve` calls RunAll at startup and refuses to listen when a
//     working directory is unusable.
//   - `lofi status` and GET /api/status use Collect to display tool
//     versions, directory access and the active acceleration profile.
package preflight
