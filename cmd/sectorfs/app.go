package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"

	"github.com/urfave/cli/v2"
	pz "github.com/weberc2/httpeasy"
	"github.com/weberc2/sectorfs/pkg/api"
	"github.com/weberc2/sectorfs/pkg/config"
	"github.com/weberc2/sectorfs/pkg/file"
	"github.com/weberc2/sectorfs/pkg/fs"
	"github.com/weberc2/sectorfs/pkg/objectstore"
	"github.com/weberc2/sectorfs/pkg/partition"
	"github.com/weberc2/sectorfs/pkg/snapshot"
	"github.com/weberc2/sectorfs/pkg/types"
)

type app struct {
	config   *config.Config
	logger   *slog.Logger
	noFormat bool

	// defaults to S3
	objectStore types.ObjectStore

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

var (
	imageFlag = cli.StringFlag{
		Name:    "image",
		Aliases: []string{"i"},
		Usage:   "path to the disk image",
	}
	backendFlag = cli.StringFlag{
		Name:  "backend",
		Usage: "image backend: `file` or `bolt`",
	}
	sectorsFlag = cli.UintFlag{
		Name:  "sectors",
		Usage: "size of a newly created image in sectors",
	}
	inodesFlag = cli.UintFlag{
		Name:  "inodes",
		Usage: "inode count used when formatting",
	}
	logLevelFlag = cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	}
	noFormatFlag = cli.BoolFlag{
		Name:  "no-format",
		Usage: "fail instead of formatting an unformatted image",
	}
	longFlag = cli.BoolFlag{
		Name:  "l",
		Usage: "also print the size of each entry",
	}
	addrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "address the inspection API listens on",
	}
)

func (a *app) command() *cli.App {
	return &cli.App{
		Name:      "sectorfs",
		Usage:     "manipulate sectorfs disk images",
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&imageFlag,
			&backendFlag,
			&sectorsFlag,
			&inodesFlag,
			&logLevelFlag,
			&noFormatFlag,
		},
		Before: a.load,
		Commands: []*cli.Command{{
			Name:  "format",
			Usage: "write an empty filesystem to the image",
			Action: func(ctx *cli.Context) error {
				return a.format()
			},
		}, {
			Name:  "probe",
			Usage: "print the superblock if the image is formatted",
			Action: func(ctx *cli.Context) error {
				return a.probe()
			},
		}, {
			Name:      "ls",
			Usage:     "list a directory",
			ArgsUsage: "[PATH]",
			Flags:     []cli.Flag{&longFlag},
			Action: func(ctx *cli.Context) error {
				return a.ls(argOr(ctx, 0, "/"), ctx.Bool(longFlag.Name))
			},
		}, {
			Name:      "cat",
			Usage:     "print a file",
			ArgsUsage: "PATH",
			Action: func(ctx *cli.Context) error {
				path, err := arg(ctx, 0, "PATH")
				if err != nil {
					return err
				}
				return a.cat(path)
			},
		}, {
			Name:      "put",
			Usage:     "copy a local file (or `-` for stdin) into the image",
			ArgsUsage: "SRC DST",
			Action: func(ctx *cli.Context) error {
				src, err := arg(ctx, 0, "SRC")
				if err != nil {
					return err
				}
				dst, err := arg(ctx, 1, "DST")
				if err != nil {
					return err
				}
				return a.put(src, dst)
			},
		}, {
			Name:      "mkdir",
			Usage:     "create a directory",
			ArgsUsage: "PATH",
			Action: a.pathAction(func(proc *fs.Process, path string) error {
				return proc.Mkdir(path)
			}),
		}, {
			Name:      "rmdir",
			Usage:     "remove an empty directory",
			ArgsUsage: "PATH",
			Action: a.pathAction(func(proc *fs.Process, path string) error {
				return proc.Rmdir(path)
			}),
		}, {
			Name:      "rm",
			Aliases:   []string{"unlink"},
			Usage:     "remove a regular file",
			ArgsUsage: "PATH",
			Action: a.pathAction(func(proc *fs.Process, path string) error {
				return proc.Unlink(path)
			}),
		}, {
			Name:      "stat",
			Usage:     "print a path's inode number, size and type",
			ArgsUsage: "PATH",
			Action: a.pathAction(func(proc *fs.Process, path string) error {
				stat, err := proc.Stat(path)
				if err != nil {
					return err
				}
				return a.printJSON(&stat)
			}),
		}, {
			Name:  "usage",
			Usage: "print block and inode usage",
			Action: func(ctx *cli.Context) error {
				return a.withFS(func(proc *fs.Process) error {
					usage := proc.FileSystem().Usage()
					return a.printJSON(&usage)
				})
			},
		}, {
			Name:  "serve",
			Usage: "serve the read-only inspection API",
			Flags: []cli.Flag{&addrFlag},
			Action: func(ctx *cli.Context) error {
				if ctx.IsSet(addrFlag.Name) {
					a.config.Addr = ctx.String(addrFlag.Name)
				}
				return a.serve()
			},
		}, {
			Name:  "snapshot",
			Usage: "copy images to and from the snapshot bucket",
			Subcommands: []*cli.Command{{
				Name:      "push",
				Usage:     "upload the image",
				ArgsUsage: "LABEL",
				Action: func(ctx *cli.Context) error {
					label, err := arg(ctx, 0, "LABEL")
					if err != nil {
						return err
					}
					return a.push(label)
				},
			}, {
				Name:      "pull",
				Usage:     "overwrite the image with a snapshot",
				ArgsUsage: "KEY",
				Action: func(ctx *cli.Context) error {
					key, err := arg(ctx, 0, "KEY")
					if err != nil {
						return err
					}
					return a.pull(key)
				},
			}, {
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "list snapshots, optionally only those under LABEL",
				ArgsUsage: "[LABEL]",
				Action: func(ctx *cli.Context) error {
					return a.list(argOr(ctx, 0, ""))
				},
			}},
		}},
	}
}

const MissingArgErr types.ConstError = "missing argument"

func arg(ctx *cli.Context, i int, name string) (string, error) {
	if ctx.NArg() <= i {
		return "", fmt.Errorf("%s: %w", name, MissingArgErr)
	}
	return ctx.Args().Get(i), nil
}

func argOr(ctx *cli.Context, i int, fallback string) string {
	if ctx.NArg() <= i {
		return fallback
	}
	return ctx.Args().Get(i)
}

func (a *app) pathAction(f func(*fs.Process, string) error) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		path, err := arg(ctx, 0, "PATH")
		if err != nil {
			return err
		}
		return a.withFS(func(proc *fs.Process) error { return f(proc, path) })
	}
}

// load reads the configuration and applies command line overrides.
func (a *app) load(ctx *cli.Context) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	if ctx.IsSet(imageFlag.Name) {
		c.Image = ctx.String(imageFlag.Name)
	}
	if ctx.IsSet(backendFlag.Name) {
		c.Backend = ctx.String(backendFlag.Name)
	}
	if ctx.IsSet(sectorsFlag.Name) {
		c.Sectors = uint32(ctx.Uint(sectorsFlag.Name))
	}
	if ctx.IsSet(inodesFlag.Name) {
		c.Inodes = uint32(ctx.Uint(inodesFlag.Name))
	}
	if ctx.IsSet(logLevelFlag.Name) {
		c.LogLevel = ctx.String(logLevelFlag.Name)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	level, err := c.Level()
	if err != nil {
		return err
	}

	a.config = c
	a.noFormat = ctx.Bool(noFormatFlag.Name)
	a.logger = slog.New(slog.NewTextHandler(
		a.stderr,
		&slog.HandlerOptions{Level: level},
	))
	return nil
}

func (a *app) printJSON(v interface{}) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) format() error {
	d, closer, err := openDisk(a.config)
	if err != nil {
		return err
	}
	defer closer.Close()

	opts := formatOptions(a.config)
	opts.Logger = a.logger
	sb, err := partition.Format(d, opts)
	if err != nil {
		return err
	}
	return a.printJSON(sb)
}

const NotFormattedErr types.ConstError = "image is not formatted"

func (a *app) probe() error {
	d, closer, err := openDisk(a.config)
	if err != nil {
		return err
	}
	defer closer.Close()

	sb, ok, err := partition.Probe(d)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("probing `%s`: %w", a.config.Image, NotFormattedErr)
	}
	return a.printJSON(sb)
}

func (a *app) ls(dir string, long bool) error {
	return a.withFS(func(proc *fs.Process) error {
		entries, err := proc.ReadDirAll(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if !long {
				if _, err := fmt.Fprintf(
					a.stdout,
					"%-16s %5d %s\n",
					entry.Name,
					entry.Ino,
					entry.FileType,
				); err != nil {
					return err
				}
				continue
			}

			stat, err := proc.Stat(path.Join(dir, entry.Name))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(
				a.stdout,
				"%-16s %5d %-9s %8d\n",
				entry.Name,
				entry.Ino,
				entry.FileType,
				stat.Size,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// cat copies the file to descriptor 1 one block at a time.
func (a *app) cat(path string) error {
	return a.withFS(func(proc *fs.Process) error {
		fd, err := proc.Open(path, file.ReadOnly)
		if err != nil {
			return err
		}
		defer proc.Close(fd)

		buf := make([]byte, types.BlockSize)
		for {
			n, err := proc.Read(fd, buf)
			if n > 0 {
				if _, err := proc.Write(fs.Stdout, buf[:n]); err != nil {
					return err
				}
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
		}
	})
}

func (a *app) put(src, dst string) error {
	return a.withFS(func(proc *fs.Process) error {
		var (
			data []byte
			err  error
		)
		if src == "-" {
			data, err = readAll(proc, fs.Stdin)
		} else {
			data, err = os.ReadFile(src)
		}
		if err != nil {
			return fmt.Errorf("reading `%s`: %w", src, err)
		}
		return proc.WriteFile(dst, data)
	})
}

func readAll(proc *fs.Process, fd int) ([]byte, error) {
	var out []byte
	buf := make([]byte, types.BlockSize)
	for {
		n, err := proc.Read(fd, buf)
		out = append(out, buf[:n]...)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

func (a *app) serve() error {
	return a.withFS(func(proc *fs.Process) error {
		service := api.Service{FS: proc.FileSystem(), Logger: a.logger}
		a.logger.Info("listening", "addr", a.config.Addr)
		if err := http.ListenAndServe(
			a.config.Addr,
			pz.Register(pz.JSONLog(a.stderr), service.Routes()...),
		); err != nil {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
}

func (a *app) snapshots() (*snapshot.Store, error) {
	if err := a.config.ValidateSnapshots(); err != nil {
		return nil, err
	}
	store := a.objectStore
	if store == nil {
		s3, err := objectstore.NewS3(a.config.Region)
		if err != nil {
			return nil, err
		}
		store = s3
	}
	return snapshot.New(
		store,
		a.config.Bucket,
		a.config.Prefix,
		a.logger,
	), nil
}

func (a *app) push(label string) error {
	store, err := a.snapshots()
	if err != nil {
		return err
	}
	d, closer, err := openDisk(a.config)
	if err != nil {
		return err
	}
	defer closer.Close()

	snap, err := store.Push(label, d)
	if err != nil {
		return err
	}
	return a.printJSON(&snap)
}

func (a *app) pull(key string) error {
	store, err := a.snapshots()
	if err != nil {
		return err
	}
	d, closer, err := openDisk(a.config)
	if err != nil {
		return err
	}
	defer closer.Close()
	return store.Pull(key, d)
}

func (a *app) list(label string) error {
	store, err := a.snapshots()
	if err != nil {
		return err
	}
	snapshots, err := store.List(label)
	if err != nil {
		return err
	}
	return a.printJSON(snapshots)
}
