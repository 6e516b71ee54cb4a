//go:build !linux && !windows

package aoembree

// Supported reports whether an AOEmbree build exists for this platform.
// AOEmbree is not shipped for this platform; New always fails and surfaces
// are generated without ambient occlusion.
const Supported = false
