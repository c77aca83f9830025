package domain

import "strings"

// destinationSeparator is trimmed from both ends of a derived collection name.
const destinationSeparator = "."

// CreationArguments controls how missing collections are created.
// MaxEntries is only meaningful when Capped is set; zero means no entry cap.
type CreationArguments struct {
	Capped     bool
	Size       int64
	MaxEntries int64
}

// Namer derives collection names from record tags.
type Namer struct {
	// StripPrefix is removed from the start of a tag when present.
	StripPrefix string

	// Default is used when the stripped tag is empty.
	Default string
}

// Normalize returns the collection name for a tag.
func (n Namer) Normalize(tag string) string {
	name := tag
	if n.StripPrefix != "" {
		name = strings.TrimPrefix(name, n.StripPrefix)
	}
	name = strings.Trim(name, destinationSeparator)
	if name == "" {
		return n.Default
	}
	return name
}
