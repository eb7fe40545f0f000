// Package server exposes the conversion form and the JSON status API.
//
// The form endpoints accept the same multipart fields as the original web
// form and stream the converted file back as an attachment. The /api routes
// report dependency status and job history and may require a bearer token.
// A server holds an exclusive lock on the state directory while running.
package server
