package bridge

import (
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

var videoExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".mov":  {},
}

// NewestVideo walks the given directories recursively and returns the most
// recently modified rendered video. Missing directories are skipped.
func NewestVideo(dirs []string) (string, bool) {
	var (
		newest     string
		newestTime time.Time
	)
	for _, dir := range dirs {
		_ = filepath.WalkDir(dir, func(path string, entry fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			if _, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]; !ok {
				return nil
			}
			info, err := entry.Info()
			if err != nil {
				return nil
			}
			if info.ModTime().After(newestTime) {
				newestTime = info.ModTime()
				newest = path
			}
			return nil
		})
	}
	return newest, newest != ""
}
