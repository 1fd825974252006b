package fs

import (
	"fmt"
	"strings"

	"github.com/weberc2/sectorfs/pkg/lookup"
	. "github.com/weberc2/sectorfs/pkg/types"
)

type Stat struct {
	Ino      Ino      `json:"ino"`
	Size     Byte     `json:"size"`
	FileType FileType `json:"fileType"`
}

func (proc *Process) Stat(path string) (Stat, error) {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if lookup.IsRoot(path) {
		return Stat{
			Ino:      fs.root.Ino(),
			Size:     fs.root.Inode.Size,
			FileType: FileTypeDir,
		}, nil
	}

	var record lookup.SearchRecord
	defer record.Close()
	ino, found, err := lookup.Search(fs.root, proc.cwd, path, &record)
	if err != nil {
		return Stat{}, fmt.Errorf("stat `%s`: %w", path, err)
	}
	if err := checkWalk(path, found, &record); err != nil {
		return Stat{}, fmt.Errorf("stat `%s`: %w", path, err)
	}
	if !found {
		return Stat{}, fmt.Errorf("stat `%s`: %w", path, NotFoundErr)
	}

	h, err := fs.partition.Inodes.Open(ino)
	if err != nil {
		return Stat{}, fmt.Errorf("stat `%s`: %w", path, err)
	}
	defer fs.partition.Inodes.Close(h)
	return Stat{Ino: ino, Size: h.Size, FileType: record.FileType}, nil
}

// Chdir makes the directory at `path` the working directory.
func (proc *Process) Chdir(path string) error {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	var record lookup.SearchRecord
	defer record.Close()
	ino, found, err := lookup.Search(fs.root, proc.cwd, path, &record)
	if err != nil {
		return fmt.Errorf("changing directory to `%s`: %w", path, err)
	}
	if err := checkWalk(path, found, &record); err != nil {
		return fmt.Errorf("changing directory to `%s`: %w", path, err)
	}
	if !found {
		return fmt.Errorf("changing directory to `%s`: %w", path, NotFoundErr)
	}
	if record.FileType != FileTypeDir {
		return fmt.Errorf("changing directory to `%s`: %w", path, NotADirErr)
	}
	fs.setCwd(proc, ino)
	return nil
}

// Getcwd rebuilds the absolute path of the working directory by walking
// `..` entries up to the root, looking up each directory's name in its
// parent along the way.
func (proc *Process) Getcwd() (string, error) {
	fs := proc.fs
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	var names []string
	child := proc.cwd
	for child != fs.root.Ino() {
		dir, err := fs.openDir(child)
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		parentIno, err := dir.ParentIno()
		dir.Close()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}

		parent, err := fs.openDir(parentIno)
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		var entry DirEntry
		found, err := parent.FindIno(child, &entry)
		parent.Close()
		if err != nil {
			return "", fmt.Errorf("getting working directory: %w", err)
		}
		if !found {
			panic(fmt.Sprintf(
				"directory `%d` is not listed in its parent `%d`",
				child,
				parentIno,
			))
		}

		names = append(names, entry.Name)
		child = parentIno
	}

	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return "/" + strings.Join(names, "/"), nil
}
