package upload

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"gh-issues/internal/config"
)

// ForConfig builds a pipeline from the images section of cfg. Images go to
// the configured upload branch, else the repository's default base branch.
func ForConfig(api ContentAPI, cfg config.Config) Pipeline {
	return Pipeline{
		API: api,
		Options: Options{
			MaxBytes:       cfg.ImageMaxBytes(),
			PathPrefix:     cfg.Images.UploadPath,
			Branch:         cfg.Images.UploadBranch,
			FallbackBranch: cfg.DefaultBaseBranch,
		},
	}
}

// DetectMIME guesses an image type from the file extension, sniffing the
// content when the extension is unknown.
func DetectMIME(name string, b []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); t != "" {
		if i := strings.IndexByte(t, ';'); i >= 0 {
			t = t[:i]
		}
		return t
	}
	return http.DetectContentType(b)
}
