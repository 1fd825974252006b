package lookup

import (
	"fmt"

	"github.com/weberc2/sectorfs/pkg/directory"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// SearchRecord describes how far a Search got. Parent is the directory the
// walk ended in: the directory containing the final component on a hit, or
// the directory in which a component was missing. Searched is every
// component visited, joined with slashes, including the missing one.
type SearchRecord struct {
	Searched string
	Parent   *directory.Dir
	FileType FileType
}

// Close releases the record's reference on Parent.
func (record *SearchRecord) Close() {
	if record.Parent != nil {
		record.Parent.Close()
		record.Parent = nil
	}
}

// Complete reports whether the walk reached the last component of `path`.
// A miss on the last component is complete; a miss on an intermediate
// component, or a regular file where a directory was needed, is not.
func (record *SearchRecord) Complete(path string) bool {
	return Depth(path) == Depth(record.Searched)
}

// Search walks `path` from `root` (absolute paths) or `cwd` (relative
// paths). Directory hits descend; a regular file hit stops the walk even if
// components remain; a miss stops with `found == false`. The caller owns
// `record` and must Close it whether or not Search succeeds.
func Search(
	root *directory.Dir,
	cwd Ino,
	path string,
	record *SearchRecord,
) (Ino, bool, error) {
	if path == "" {
		return 0, false, fmt.Errorf("searching ``: %w", InvalidArgumentErr)
	}
	if len(path) >= MaxPathLen {
		return 0, false, fmt.Errorf("searching `%s`: %w", path, NameTooLongErr)
	}

	*record = SearchRecord{Parent: root, FileType: FileTypeDir}
	if IsRoot(path) {
		return root.Ino(), true, nil
	}

	if path[0] != '/' {
		dir, err := openDir(root, cwd)
		if err != nil {
			return 0, false, fmt.Errorf("searching `%s`: %w", path, err)
		}
		record.Parent = dir
	}

	parentIno := record.Parent.Ino()
	var entry DirEntry
	for name, rest := Parse(path); name != ""; name, rest = Parse(rest) {
		record.Searched += "/" + name

		found, err := record.Parent.Find(name, &entry)
		if err != nil {
			return 0, false, fmt.Errorf("searching `%s`: %w", path, err)
		}
		if !found {
			return 0, false, nil
		}

		if entry.FileType == FileTypeRegular {
			record.FileType = FileTypeRegular
			return entry.Ino, true, nil
		}

		parentIno = record.Parent.Ino()
		dir, err := openDir(root, entry.Ino)
		if err != nil {
			return 0, false, fmt.Errorf("searching `%s`: %w", path, err)
		}
		record.Parent.Close()
		record.Parent = dir
	}

	// every component was a directory: report the last one's parent
	dir, err := openDir(root, parentIno)
	if err != nil {
		return 0, false, fmt.Errorf("searching `%s`: %w", path, err)
	}
	ino := record.Parent.Ino()
	record.Parent.Close()
	record.Parent = dir
	record.FileType = FileTypeDir
	return ino, true, nil
}

// openDir hands out the permanent root instead of a second reference to it.
func openDir(root *directory.Dir, ino Ino) (*directory.Dir, error) {
	if ino == root.Ino() {
		return root, nil
	}
	return directory.Open(root.Partition(), ino)
}
