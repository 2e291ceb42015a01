// Package fsutil holds the filesystem helpers the download pipeline needs:
// destination directories, output files, URL list files and safe names.
package fsutil

import (
	"bufio"
	"os"
	"regexp"
	"runtime"
	"strings"
)

// Windows ignores execute bits, so it gets wider modes than unix.
const (
	filePermsWindows = 0666
	dirPermsWindows  = 0777
	filePermsUnix    = 0644
	dirPermsUnix     = 0755
)

// GetFileMode returns the default file permissions for this platform.
func GetFileMode() os.FileMode {
	if runtime.GOOS == "windows" {
		return filePermsWindows
	}
	return filePermsUnix
}

// GetDirMode returns the default directory permissions for this platform.
func GetDirMode() os.FileMode {
	if runtime.GOOS == "windows" {
		return dirPermsWindows
	}
	return dirPermsUnix
}

// MakeDirs creates path and any missing parents.
func MakeDirs(path string) error {
	return os.MkdirAll(path, GetDirMode())
}

// OpenFile opens name with the given flags, substituting the platform
// default when perm is zero.
func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if perm == 0 {
		perm = GetFileMode()
	}
	return os.OpenFile(name, flag, perm)
}

// ReadFile opens name for reading.
func ReadFile(name string) (*os.File, error) {
	return OpenFile(name, os.O_RDONLY, 0)
}

// WriteFile opens name for writing, truncating any existing content.
func WriteFile(name string) (*os.File, error) {
	return OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0)
}

// FileExists reports whether name exists and is a regular file.
func FileExists(name string) bool {
	info, err := os.Stat(name)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ReadTxtFile returns the non-empty, whitespace-trimmed lines of a text
// file, in order.
func ReadTxtFile(path string) ([]string, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

var invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFileName replaces characters that are invalid in file names on any
// supported platform and strips trailing dots and spaces, which Windows
// rejects. An input that sanitizes to nothing yields "untitled".
func SanitizeFileName(name string) string {
	s := invalidFilenameChars.ReplaceAllString(name, "_")
	s = strings.TrimRight(s, ". ")
	if s == "" {
		return "untitled"
	}
	return s
}
