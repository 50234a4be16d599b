package theme

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadActive reads <themesDir>/<active>.json. Anything that goes wrong yields
// the default palette together with the error.
func LoadActive(themesDir, active string) (PaletteHex, string, error) {
	if active == "" || active == "default" {
		return DefaultPaletteHex(), "default", nil
	}
	b, err := os.ReadFile(filepath.Join(themesDir, active+".json"))
	if err != nil {
		return DefaultPaletteHex(), "default", err
	}
	tf, err := ParseThemeFile(b)
	if err != nil {
		return DefaultPaletteHex(), "default", err
	}
	if tf.ID != active {
		return DefaultPaletteHex(), "default", fmt.Errorf("theme id mismatch: expected %q got %q", active, tf.ID)
	}
	return tf.Colors, tf.ID, nil
}

func ListLocal(themesDir string) ([]string, error) {
	ents, err := os.ReadDir(themesDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	ids := make([]string, 0, len(ents))
	for _, ent := range ents {
		name := ent.Name()
		if ent.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	sort.Strings(ids)
	return ids, nil
}
