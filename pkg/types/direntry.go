package types

const (
	MaxFileNameLen      = 16
	DirEntrySize   Byte = MaxFileNameLen + 4 + 1
	MaxPathLen          = 512
)

type DirEntry struct {
	Name     string   `json:"name"`
	Ino      Ino      `json:"ino"`
	FileType FileType `json:"fileType"`
}

// Live reports whether the entry is in use. Deleted and never-written slots
// both carry FileTypeUnknown.
func (entry *DirEntry) Live() bool { return entry.FileType != FileTypeUnknown }

// IsDot reports whether the entry is one of the two permanent `.` and `..`
// entries.
func (entry *DirEntry) IsDot() bool {
	return entry.Name == "." || entry.Name == ".."
}
