// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-pkgtrust.
//
// go-pkgtrust is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package repo models the origin of an installable package: the repository
// it came from, or the command line for locally supplied files.
package repo

// Type classifies a package's origin.
type Type int

const (
	// TypeRepository marks packages sourced from a configured repository.
	TypeRepository Type = iota

	// TypeCommandline marks packages supplied directly on the command line.
	TypeCommandline
)

// Config holds the per-repository settings relevant to signature trust.
type Config struct {
	// GPGCheck requires signature verification for packages from this
	// repository.
	GPGCheck bool
}

// Repo identifies one package source.
type Repo struct {
	ID     string
	Type   Type
	Config Config
}

// CommandlineRepo returns the synthetic repo representing locally supplied
// package files.
func CommandlineRepo() *Repo {
	return &Repo{ID: "@commandline", Type: TypeCommandline}
}

// Package is one installable package file and its origin.
type Package struct {
	// Path is the local filesystem location of the package file.
	Path string

	// Repo is the package's origin. A nil Repo is treated as commandline.
	Repo *Repo
}
