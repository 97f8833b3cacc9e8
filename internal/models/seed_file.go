package models

// SeedFile is the json-server database layout read by the seed loader
type SeedFile struct {
	Tags []Tag `json:"tags"`
	Tag  []Tag `json:"tag,omitempty"` // Alternative key name (singular collections)
}

// GetTags returns the seeded tags, checking both possible JSON keys
func (s *SeedFile) GetTags() []Tag {
	if len(s.Tags) > 0 {
		return s.Tags
	}
	return s.Tag
}
