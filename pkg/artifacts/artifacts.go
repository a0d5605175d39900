// Package artifacts lays out the on-disk output of an ingest run: one
// Akoma Ntoso XML file and one JSON file per section, named by a
// citation slug plus a short stable hash so distinct citations never
// collide.
package artifacts

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/RulesFoundation/atlas/models"
	"github.com/RulesFoundation/atlas/pkg/akn"
)

const (
	DefaultBaseDir = "atlas-out"
	AKNDir         = "akn"
	JSONDir        = "sections"
)

// Manager writes and checks section artifacts under one base directory.
type Manager struct {
	baseDir string
	maxAge  time.Duration // 0 means artifacts never go stale
}

// NewManager ensures the output directories exist.
func NewManager(baseDir string, maxAge time.Duration) (*Manager, error) {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	for _, dir := range []string{AKNDir, JSONDir} {
		if err := os.MkdirAll(filepath.Join(baseDir, dir), 0750); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}
	return &Manager{baseDir: baseDir, maxAge: maxAge}, nil
}

func (m *Manager) BaseDir() string       { return m.baseDir }
func (m *Manager) MaxAge() time.Duration { return m.maxAge }

var invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_.]+`)

// slug builds a readable, filesystem-safe name from the citation path.
// "uk/ukpga/2003/1/section/62" -> "uk_ukpga_2003_1_section_62".
func slug(citationPath string) string {
	safe := invalidFilenameChar.ReplaceAllString(citationPath, "_")
	return strings.Trim(safe, "_")
}

func shortHash(citationPath string) string {
	sum := sha256.Sum256([]byte(citationPath))
	return fmt.Sprintf("%x", sum[:6])
}

func citationPath(section *models.Section) string {
	return section.Jurisdiction + "/" + section.Citation.Section
}

// Path returns the artifact location for a section in the given
// subdirectory with the given extension.
func (m *Manager) Path(section *models.Section, dir, ext string) string {
	path := citationPath(section)
	filename := fmt.Sprintf("%s-%s%s", slug(path), shortHash(path), ext)
	return filepath.Join(m.baseDir, dir, filename)
}

// Fresh reports whether an artifact already exists and is newer than
// the manager's max age.
func (m *Manager) Fresh(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	if m.maxAge > 0 && time.Since(info.ModTime()) > m.maxAge {
		return false
	}
	return true
}

// WriteAKN emits the section as Akoma Ntoso XML. Returns the path and
// whether a write happened; fresh artifacts are left alone.
func (m *Manager) WriteAKN(section *models.Section) (string, bool, error) {
	path := m.Path(section, AKNDir, ".xml")
	if m.Fresh(path) {
		return path, false, nil
	}
	data, err := akn.Bytes(section)
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", false, fmt.Errorf("failed to write AKN artifact: %w", err)
	}
	return path, true, nil
}

// WriteJSON emits the normalized section as indented JSON.
func (m *Manager) WriteJSON(section *models.Section) (string, bool, error) {
	path := m.Path(section, JSONDir, ".json")
	if m.Fresh(path) {
		return path, false, nil
	}
	data, err := json.MarshalIndent(section, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", false, fmt.Errorf("failed to write JSON artifact: %w", err)
	}
	return path, true, nil
}
