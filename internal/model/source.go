// Package model defines the data structures shared by the guard check.
package model

// Path represents a file system path.
type Path string

// FileKind tells the checker how a PHP file is laid out.
type FileKind string

const (
	// GenericSource is any PHP file that executes code when included.
	// It is expected to start with the include guard.
	GenericSource FileKind = "source"

	// LanguageResource is a language file: a single array of translations.
	// It is scanned without the namespace classification step.
	LanguageResource FileKind = "language"
)

// File identifies a file on disk together with a fingerprint of its contents.
type File struct {
	Path Path
	Hash string
}

// Source is a PHP file selected for checking.
type Source struct {
	Origin *File
	// Rel is the path relative to the project base directory.
	Rel  Path
	Kind FileKind
}
