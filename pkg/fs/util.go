package fs

import (
	"errors"
	"fmt"
	"io"

	"github.com/weberc2/sectorfs/pkg/file"
	. "github.com/weberc2/sectorfs/pkg/types"
)

// ReadFile returns the whole contents of the regular file at `path`.
func (proc *Process) ReadFile(path string) ([]byte, error) {
	fd, err := proc.Open(path, file.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer proc.Close(fd)

	var out []byte
	buf := make([]byte, 4*BlockSize)
	for {
		n, err := proc.Read(fd, buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// WriteFile replaces the regular file at `path` with one holding `data`.
func (proc *Process) WriteFile(path string, data []byte) error {
	if err := proc.Unlink(path); err != nil && !errors.Is(err, NotFoundErr) {
		return fmt.Errorf("replacing `%s`: %w", path, err)
	}

	fd, err := proc.Open(path, file.WriteOnly|file.Create)
	if err != nil {
		return err
	}
	if _, err := proc.Write(fd, data); err != nil {
		proc.Close(fd)
		return err
	}
	return proc.Close(fd)
}

// ReadDirAll lists every entry of the directory at `path`, including `.`
// and `..`.
func (proc *Process) ReadDirAll(path string) ([]DirEntry, error) {
	dir, err := proc.OpenDir(path)
	if err != nil {
		return nil, err
	}
	defer proc.CloseDir(dir)

	var entries []DirEntry
	for {
		var entry DirEntry
		if err := proc.ReadDir(dir, &entry); err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, fmt.Errorf("listing `%s`: %w", path, err)
		}
		entries = append(entries, entry)
	}
}
