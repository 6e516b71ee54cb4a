//go:build linux || windows

package aoembree

// Supported reports whether an AOEmbree build exists for this platform.
const Supported = true
