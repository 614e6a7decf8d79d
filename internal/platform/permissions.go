package platform

import (
	"os"
	"runtime"
)

// Chmod sets file permissions. On Windows this is a no-op because Windows
// does not support Unix-style permission bits.
func Chmod(path string, mode os.FileMode) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	return os.Chmod(path, mode)
}

// CopyMode applies the source file's permission bits to dst. Template
// payloads carry executable scripts (migrations, dev servers), so the
// materializer calls this after every copy to keep the exec bit intact.
func CopyMode(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	return Chmod(dst, info.Mode().Perm())
}

// IsExecutable reports whether any execute bit is set on the file.
// Always false on Windows, where the concept does not apply.
func IsExecutable(info os.FileInfo) bool {
	if runtime.GOOS == "windows" {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
