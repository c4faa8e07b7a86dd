// Package bestpractices serves markdown guides on using a package well.
// Guides in the user directory take precedence over the defaults embedded
// in configs.
package bestpractices

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Aman-CERP/amandocs/configs"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

const guideExt = ".md"

// Guide sources.
const (
	SourceUser    = "user"
	SourceDefault = "default"
)

// Guide is one best-practice document.
type Guide struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Content string `json:"content"`
}

type layer struct {
	source string
	fsys   fs.FS
}

// Store looks guides up in the user directory first, then in the defaults.
type Store struct {
	userDir string
	layers  []layer
}

// New returns a Store over userDir and the embedded defaults. userDir need
// not exist.
func New(userDir string) *Store {
	// The subdirectory name is a valid constant, so Sub cannot fail.
	defaults, _ := fs.Sub(configs.BestPractices, "best-practices")
	return NewWithDefaults(userDir, defaults)
}

// NewWithDefaults is New with the default guides read from defaults.
func NewWithDefaults(userDir string, defaults fs.FS) *Store {
	s := &Store{userDir: userDir}
	if userDir != "" {
		s.layers = append(s.layers, layer{source: SourceUser, fsys: os.DirFS(userDir)})
	}
	if defaults != nil {
		s.layers = append(s.layers, layer{source: SourceDefault, fsys: defaults})
	}
	return s
}

// UserDir is the directory whose guides override the defaults.
func (s *Store) UserDir() string {
	return s.userDir
}

// Get returns the guide for name. Underscores and hyphens are
// interchangeable, so panel_material_ui finds panel-material-ui.md.
func (s *Store) Get(name string) (*Guide, error) {
	name = strings.TrimSpace(name)
	if !validName(name) {
		return nil, amerrors.ValidationError(fmt.Sprintf("invalid best practices name %q", name), nil).
			WithSuggestion("Use a package name such as panel or hvplot")
	}

	for _, l := range s.layers {
		for _, candidate := range variants(name) {
			data, err := fs.ReadFile(l.fsys, candidate+guideExt)
			if err == nil {
				return &Guide{Name: candidate, Source: l.source, Content: string(data)}, nil
			}
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, amerrors.IOError("failed to read best practices for "+candidate, err).
					WithDetail("source", l.source)
			}
		}
	}

	available, err := s.List()
	if err != nil {
		return nil, err
	}
	suggestion := "No best practices are installed"
	if len(available) > 0 {
		suggestion = "Available: " + strings.Join(available, ", ")
	}
	return nil, amerrors.NotFoundError(fmt.Sprintf("no best practices for %q", name)).
		WithDetail("user_dir", s.userDir).
		WithSuggestion(suggestion)
}

// List returns the sorted names of every guide across both sources.
func (s *Store) List() ([]string, error) {
	seen := map[string]bool{}
	for _, l := range s.layers {
		entries, err := fs.ReadDir(l.fsys, ".")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, amerrors.IOError("failed to list best practices", err).
				WithDetail("source", l.source)
		}
		for _, e := range entries {
			if e.IsDir() || path.Ext(e.Name()) != guideExt {
				continue
			}
			seen[strings.TrimSuffix(e.Name(), guideExt)] = true
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// variants lists the file stems tried for name, hyphenated first.
func variants(name string) []string {
	hyphen := strings.ReplaceAll(name, "_", "-")
	if hyphen == name {
		return []string{name}
	}
	return []string{hyphen, name}
}

// validName rejects anything that could address a file outside the guide
// directory.
func validName(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return false
	}
	return fs.ValidPath(name + guideExt)
}
