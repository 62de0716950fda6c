// Package walk implements the Publish Walker: it enumerates
// a publish output tree, classifies each file, and orders the result for
// upload. Exclusion glob matching uses github.com/bmatcuk/doublestar/v4 for
// real ** support.
package walk

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ftpsheep/ftpsheep/internal/models"
)

var staticExtensions = map[string]bool{
	".html": true, ".htm": true, ".css": true, ".js": true, ".json": true,
	".xml": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".svg": true, ".ico": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true,
}

var assemblyExtensions = map[string]bool{
	".dll": true, ".exe": true,
}

// Classify assigns a FileKind to one relative path (POSIX slashes) based
// on its basename and extension.
func Classify(relativePath string) models.FileKind {
	base := strings.ToLower(filepath.Base(relativePath))
	switch base {
	case "app_offline.htm", "app_offline.html":
		return models.KindAppOffline
	case "web.config":
		return models.KindWebConfig
	}
	ext := strings.ToLower(filepath.Ext(base))
	if assemblyExtensions[ext] {
		return models.KindAssembly
	}
	if staticExtensions[ext] {
		return models.KindStatic
	}
	return models.KindOther
}

// Result is the Publish Walker's output: the ordered upload set with
// AppOffline extracted for separate, serialized handling.
type Result struct {
	Files      []models.PublishFile // sorted smallest-first, excludes AppOffline
	AppOffline *models.PublishFile  // nil if none found
}

// Walk enumerates root, applies exclusionPatterns (doublestar glob syntax,
// matched against the POSIX relative path), classifies every remaining
// file, and returns them sorted smallest-first with any AppOffline file
// extracted.
func Walk(root string, exclusionPatterns []string) (Result, error) {
	var files []models.PublishFile
	var appOffline *models.PublishFile

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(rel, exclusionPatterns) {
			return nil
		}

		info, statErr := d.Info()
		if statErr != nil {
			return statErr
		}

		pf := models.PublishFile{
			AbsolutePath: path,
			RelativePath: rel,
			Size:         info.Size(),
			ModTime:      info.ModTime(),
			Kind:         Classify(rel),
		}

		if pf.Kind == models.KindAppOffline && appOffline == nil {
			cp := pf
			appOffline = &cp
			return nil
		}
		files = append(files, pf)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Size < files[j].Size })

	return Result{Files: files, AppOffline: appOffline}, nil
}

// matchesAny reports whether rel matches any exclusion pattern. Filepaths
// here are already forward-slash normalized; case sensitivity of the
// basename itself is left to doublestar's normal semantics.
func matchesAny(rel string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// SyntheticAppOffline builds a minimal app_offline.htm PublishFile backed
// by a real temp file, used by the Coordinator when AppOfflineEnabled is
// true and the walk found none.
func SyntheticAppOffline(dir string) (models.PublishFile, error) {
	path := filepath.Join(dir, "app_offline.htm")
	body := []byte("<html><body>Site is offline for deployment.</body></html>")
	if err := os.WriteFile(path, body, 0644); err != nil {
		return models.PublishFile{}, err
	}
	return models.PublishFile{
		AbsolutePath: path,
		RelativePath: "app_offline.htm",
		Size:         int64(len(body)),
		Kind:         models.KindAppOffline,
	}, nil
}
