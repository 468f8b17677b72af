package platform

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/blicero/krylib"
)

// File permissions
const (
	DefaultDirPermissions = 0755
)

// Default locations
const (
	DefaultRootDirName  = "phin_dataset"
	DefaultAudioDirName = "raw_audio"
)

// Name comparison thresholds
const (
	MaxNameDifference = 10
	MaxTitleRunes     = 120
)

// UntitledName is used when a title sanitizes to nothing.
const UntitledName = "untitled"

// File extensions to skip
var (
	SkippedExtensions = []string{".part", ".ytdl", ".tmp"}
)

// audioPattern matches the audio containers we produce or consume.
const audioPattern = "(?i)[.](?:wav|mp3|flac|m4a|opus|ogg|aac|webm)$"

var audioRe = regexp.MustCompile(audioPattern)

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// GetDefaultOutputRoot returns the directory downloads go to unless configured
// otherwise: ~/phin_dataset/raw_audio.
func GetDefaultOutputRoot() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DefaultRootDirName, DefaultAudioDirName), nil
}

// FileExists reports whether path exists.
func FileExists(path string) (bool, error) {
	return krylib.Fexists(path)
}

// FileSize returns the size of the file at path, or 0 if it cannot be read.
func FileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// FormatSize renders a byte count for humans.
func FormatSize(size int64) string {
	return krylib.FmtBytes(size)
}

// SanitizeTitle turns a video title into a file name stem. Letters, digits
// and combining marks of any script survive; whitespace becomes "_"; path
// separators and other punctuation are dropped. The result is deterministic
// and never empty.
func SanitizeTitle(title string) string {
	var b strings.Builder
	lastUnderscore := false

	for _, r := range strings.TrimSpace(title) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '-' || r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		case unicode.IsSpace(r), r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}

	name := strings.Trim(b.String(), "_.-")
	if runes := []rune(name); len(runes) > MaxTitleRunes {
		name = strings.TrimRight(string(runes[:MaxTitleRunes]), "_.-")
	}
	if name == "" {
		return UntitledName
	}
	return name
}

// ListFiles returns the regular files in dir matching the glob pattern,
// sorted by name. Partial download files are ignored.
func ListFiles(dir, pattern string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if isSkipped(m) {
			continue
		}
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, m)
	}
	sort.Strings(files)
	return files, nil
}

// FindAudioFiles walks root and returns all audio files below it, sorted.
func FindAudioFiles(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, incoming error) error {
		if incoming != nil {
			return incoming
		} else if d.IsDir() {
			return nil
		} else if !d.Type().IsRegular() || isSkipped(path) {
			return nil
		} else if !audioRe.MatchString(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	sort.Strings(files)
	return files, nil
}

// IsAudioFile reports whether the file name has a known audio extension.
func IsAudioFile(path string) bool {
	return audioRe.MatchString(path)
}

func isSkipped(path string) bool {
	for _, ext := range SkippedExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

// FindFileWithFallback tries to find a file by its original path, and if not
// found, looks for a file with a similar name and the same extension in the
// same directory. The downloader occasionally adjusts file names.
func FindFileWithFallback(filePath string) (string, error) {
	if filePath == "" {
		return "", fmt.Errorf("file path is empty")
	}

	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	dir := filepath.Dir(filePath)
	originalName := filepath.Base(filePath)
	originalExt := filepath.Ext(originalName)
	baseName := strings.TrimSuffix(originalName, originalExt)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		entryName := entry.Name()
		entryExt := filepath.Ext(entryName)
		entryBase := strings.TrimSuffix(entryName, entryExt)

		if entryExt == originalExt && isSimilarFileName(entryBase, baseName) {
			candidates = append(candidates, filepath.Join(dir, entryName))
		}
	}

	if len(candidates) > 0 {
		sort.Strings(candidates)
		return candidates[0], nil
	}

	return "", fmt.Errorf("file not found: %s", filePath)
}

// isSimilarFileName checks if two file names are similar enough to be considered the same file
func isSimilarFileName(name1, name2 string) bool {
	clean1 := strings.TrimSpace(name1)
	clean2 := strings.TrimSpace(name2)

	if clean1 == clean2 {
		return true
	}

	for _, sep := range []string{"-", "_", " "} {
		if clean2 == sep+clean1 || clean2 == clean1+sep {
			return true
		}
	}

	// Truncated names
	if strings.Contains(clean1, clean2) || strings.Contains(clean2, clean1) {
		diff := len(clean1) - len(clean2)
		if diff < 0 {
			diff = -diff
		}
		if diff <= MaxNameDifference {
			return true
		}
	}

	return false
}
