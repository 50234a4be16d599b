package app

import (
	"os"
	"path/filepath"
)

const Name = "gh-issues"

func ConfigDir() (string, error) {
	if dir := os.Getenv("GH_ISSUES_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", Name), nil
}

// WorkDirs returns the directories whose VCS remotes are inspected when no
// repository is configured.
func WorkDirs() []string {
	wd, err := os.Getwd()
	if err != nil {
		return nil
	}
	return []string{wd}
}
