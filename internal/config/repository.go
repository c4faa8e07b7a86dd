package config

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/amandocs/internal/doctext"
	amerrors "github.com/Aman-CERP/amandocs/internal/errors"
)

// RepositoryConfig describes one documentation source.
type RepositoryConfig struct {
	URL    string `yaml:"url" json:"url"`
	Branch string `yaml:"branch,omitempty" json:"branch,omitempty"`
	Tag    string `yaml:"tag,omitempty" json:"tag,omitempty"`
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`

	BaseURL      string `yaml:"base_url" json:"base_url"`
	URLTransform string `yaml:"url_transform,omitempty" json:"url_transform,omitempty"`

	Folders           Folders  `yaml:"folders,omitempty" json:"folders,omitempty"`
	ReferencePatterns []string `yaml:"reference_patterns,omitempty" json:"reference_patterns,omitempty"`
}

// Folder is a directory inside a repository that gets indexed.
type Folder struct {
	Name string `json:"name"`
	// URLPath is inserted after base_url for files under this folder.
	// Empty means the default path conversion applies.
	URLPath string `json:"url_path,omitempty"`
}

// Folders keeps configured folders in declaration order.
// In YAML it is either a list of names or a map of name to {url_path}.
type Folders []Folder

type folderSettings struct {
	URLPath string `yaml:"url_path"`
}

// UnmarshalYAML accepts both the list and the map form.
func (f *Folders) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("folders: %w", err)
		}
		out := make(Folders, 0, len(names))
		for _, n := range names {
			out = append(out, Folder{Name: n})
		}
		*f = out
		return nil
	case yaml.MappingNode:
		out := make(Folders, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			var name string
			if err := node.Content[i].Decode(&name); err != nil {
				return fmt.Errorf("folders: %w", err)
			}
			var settings folderSettings
			// "doc:" with no value decodes as null and keeps the defaults
			if err := node.Content[i+1].Decode(&settings); err != nil {
				return fmt.Errorf("folders.%s: %w", name, err)
			}
			out = append(out, Folder{Name: name, URLPath: settings.URLPath})
		}
		*f = out
		return nil
	default:
		return fmt.Errorf("folders: expected a list or a map, got %s", node.Tag)
	}
}

// MarshalYAML writes the map form, preserving order.
func (f Folders) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, folder := range f {
		var value yaml.Node
		if err := value.Encode(folderSettings{URLPath: folder.URLPath}); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: folder.Name}, &value)
	}
	return node, nil
}

// EffectiveFolders returns the configured folders, defaulting to "doc".
func (r RepositoryConfig) EffectiveFolders() Folders {
	if len(r.Folders) == 0 {
		return Folders{{Name: "doc"}}
	}
	return r.Folders
}

// FolderFor returns the folder containing relPath, preferring the longest
// (most specific) folder name. ok is false when no folder contains it.
func (r RepositoryConfig) FolderFor(relPath string) (Folder, bool) {
	var best Folder
	found := false
	for _, folder := range r.EffectiveFolders() {
		name := strings.Trim(path.Clean(folder.Name), "/")
		if name == "." || relPath == name || strings.HasPrefix(relPath, name+"/") {
			if !found || len(name) > len(strings.Trim(path.Clean(best.Name), "/")) {
				best, found = folder, true
			}
		}
	}
	return best, found
}

// Transform parses url_transform.
func (r RepositoryConfig) Transform() (doctext.URLTransform, error) {
	return doctext.ParseURLTransform(r.URLTransform)
}

func (r RepositoryConfig) validate(name string) error {
	if strings.TrimSpace(name) == "" {
		return amerrors.ConfigError("repository name must not be empty", nil)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return amerrors.ConfigError(fmt.Sprintf("repository name %q must be a plain directory name", name), nil)
	}
	if r.URL == "" {
		return amerrors.ConfigError(fmt.Sprintf("docs.repositories.%s.url must be set", name), nil)
	}
	if r.BaseURL == "" {
		return amerrors.ConfigError(fmt.Sprintf("docs.repositories.%s.base_url must be set", name), nil)
	}
	refs := 0
	for _, ref := range []string{r.Branch, r.Tag, r.Commit} {
		if ref != "" {
			refs++
		}
	}
	if refs > 1 {
		return amerrors.ConfigError(fmt.Sprintf("docs.repositories.%s: set at most one of branch, tag, commit", name), nil)
	}
	if _, err := r.Transform(); err != nil {
		return amerrors.ConfigError(fmt.Sprintf("docs.repositories.%s.url_transform: %v", name, err), nil)
	}
	for _, folder := range r.Folders {
		if folder.Name == "" || path.IsAbs(folder.Name) || strings.HasPrefix(path.Clean(folder.Name), "..") {
			return amerrors.ConfigError(fmt.Sprintf("docs.repositories.%s: invalid folder %q", name, folder.Name), nil)
		}
	}
	return nil
}
