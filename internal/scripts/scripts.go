package scripts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Script is one migration file in the inventory.
type Script struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// List returns the *.sql scripts under dir in apply order. Migration files
// carry a sortable timestamp prefix, so lexical order is apply order.
func List(dir string) ([]Script, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var out []Script
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		out = append(out, Script{
			Name: strings.TrimSuffix(e.Name(), ".sql"),
			Path: filepath.Join(dir, e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Latest returns the newest script under dir.
func Latest(dir string) (Script, error) {
	all, err := List(dir)
	if err != nil {
		return Script{}, err
	}
	if len(all) == 0 {
		return Script{}, fmt.Errorf("no migration scripts in %s", dir)
	}
	return all[len(all)-1], nil
}

// Load reads one script body.
func Load(s Script) (string, error) {
	body, err := os.ReadFile(s.Path)
	if err != nil {
		return "", fmt.Errorf("read script %s: %w", s.Name, err)
	}
	return string(body), nil
}

// Checksum is the sha256 of a script body, recorded in the apply ledger so
// edits to already-applied scripts are detectable.
func Checksum(body string) string {
	sum := sha256.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}
