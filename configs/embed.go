// Package configs embeds the YAML files amandocs ships with.
//
// DefaultCatalogue is the built-in list of documentation repositories. It is
// the lowest layer of configuration (see internal/config Load) and is
// replaced per project by entries in the user config file.
//
// UserConfigTemplate is written by `amandocs config init` to
// ~/.amandocs/config.yaml as a commented starting point.
//
// BestPractices holds the default best-practice guides. A guide with the same
// name in ~/.amandocs/best-practices takes precedence.
package configs

import "embed"

// DefaultCatalogue lists the documentation sources indexed out of the box.
//
//go:embed docs-catalogue.yaml
var DefaultCatalogue []byte

// UserConfigTemplate is the commented template for ~/.amandocs/config.yaml.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string

// BestPractices holds one markdown guide per package under best-practices/.
//
//go:embed best-practices/*.md
var BestPractices embed.FS
