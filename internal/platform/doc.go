// Package platform provides cross-platform filesystem permission helpers
// used when materializing template files. On Unix the source file's mode
// (the executable bit in particular) is carried to the destination; on
// Windows permission bits are a no-op.
package platform
