// Package textutil provides filename and token sanitization for paths and
// attachment names derived from client input.
package textutil
