// Package command builds the exact argument vectors for the fetcher
// (yt-dlp) and the transcoder (ffmpeg).
//
// Builders are pure: the same Spec and paths always produce the same argv.
// Arguments are never joined into a shell string, so user supplied URLs and
// filenames cannot be reinterpreted by a shell.
package command
