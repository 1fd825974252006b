package fs

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/weberc2/sectorfs/pkg/directory"
	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/file"
	"github.com/weberc2/sectorfs/pkg/partition"
	. "github.com/weberc2/sectorfs/pkg/types"
)

type Options struct {
	// Name identifies the partition in logs.
	Name string

	// Format is used when the disk does not hold a filesystem yet.
	Format partition.FormatOptions

	// NoFormat makes New fail on an unformatted disk instead of formatting
	// it.
	NoFormat bool

	Logger *slog.Logger
}

// FileSystem is one mounted partition together with the open file table.
// Calls from every Process are serialized.
type FileSystem struct {
	mutex     sync.Mutex
	partition *partition.Partition
	root      *directory.Dir
	files     *file.Table
	cwds      map[Ino]int
	Logger    *slog.Logger
}

// New mounts the filesystem on `d`, formatting it first if it has never
// been formatted.
func New(d disk.Disk, opts Options) (*FileSystem, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "sdb1"
	}
	logger := opts.Logger.With("component", "fs")

	_, formatted, err := partition.Probe(d)
	if err != nil {
		return nil, fmt.Errorf("initializing filesystem: %w", err)
	}
	if !formatted {
		if opts.NoFormat {
			return nil, fmt.Errorf(
				"initializing filesystem on `%s`: %w",
				opts.Name,
				partition.NotFormattedErr,
			)
		}
		logger.Info("no filesystem found; formatting", "partition", opts.Name)
		if opts.Format.Logger == nil {
			opts.Format.Logger = logger
		}
		if _, err := partition.Format(d, opts.Format); err != nil {
			return nil, fmt.Errorf("initializing filesystem: %w", err)
		}
	}

	p, err := partition.Mount(d, opts.Name, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing filesystem: %w", err)
	}
	root, err := directory.OpenRoot(p)
	if err != nil {
		return nil, fmt.Errorf("initializing filesystem: %w", err)
	}

	return &FileSystem{
		partition: p,
		root:      root,
		files:     file.NewTable(),
		cwds:      map[Ino]int{},
		Logger:    logger,
	}, nil
}

func (fs *FileSystem) Partition() *partition.Partition { return fs.partition }

func (fs *FileSystem) Superblock() Superblock { return fs.partition.Superblock }

func (fs *FileSystem) Usage() partition.Usage {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	return fs.partition.Usage()
}

// OpenFiles is the number of entries in the open file table.
func (fs *FileSystem) OpenFiles() int { return fs.files.Len() }

// NewProcess returns a caller with an empty descriptor table whose working
// directory is the root. Descriptors 0, 1 and 2 read from `stdin` and
// write to `stdout` and `stderr`; any of them may be nil.
func (fs *FileSystem) NewProcess(stdin io.Reader, stdout, stderr io.Writer) *Process {
	proc := &Process{
		fs:     fs,
		cwd:    fs.root.Ino(),
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}
	for i := range proc.fds {
		proc.fds[i] = -1
	}
	for i := 0; i < file.ReservedFDs; i++ {
		proc.fds[i] = i
	}
	fs.mutex.Lock()
	fs.cwds[proc.cwd]++
	fs.mutex.Unlock()
	return proc
}

// openDir opens directory `ino`, handing out the permanent root rather than
// a second reference to it.
func (fs *FileSystem) openDir(ino Ino) (*directory.Dir, error) {
	if ino == fs.root.Ino() {
		return fs.root, nil
	}
	return directory.Open(fs.partition, ino)
}
