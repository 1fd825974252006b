// Package api serves a read-only view of a mounted filesystem over HTTP.
package api

import (
	"log/slog"
	"strings"

	pz "github.com/weberc2/httpeasy"
	"github.com/weberc2/sectorfs/pkg/fs"
	. "github.com/weberc2/sectorfs/pkg/types"
)

type Service struct {
	FS     *fs.FileSystem
	Logger *slog.Logger
}

func (s *Service) Routes() []pz.Route {
	return []pz.Route{{
		Path:    "/api/stat/{path:.*}",
		Method:  "GET",
		Handler: s.Stat,
	}, {
		Path:    "/api/ls/{path:.*}",
		Method:  "GET",
		Handler: s.List,
	}, {
		Path:    "/api/cat/{path:.*}",
		Method:  "GET",
		Handler: s.Cat,
	}, {
		Path:    "/api/superblock",
		Method:  "GET",
		Handler: s.Superblock,
	}, {
		Path:    "/api/usage",
		Method:  "GET",
		Handler: s.Usage,
	}}
}

// handlers run concurrently and a Process is not safe for concurrent use, so
// each request gets its own
func (s *Service) process() *fs.Process {
	return s.FS.NewProcess(nil, nil, nil)
}

func requestPath(r pz.Request) string {
	return "/" + strings.TrimPrefix(r.Vars["path"], "/")
}

// fail responds with the status the error's HTTPError() reports, or 500.
func (s *Service) fail(message, path string, err error) pz.Response {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug(message, "path", path, "err", err.Error())
	return pz.HandleError(message, err)
}

type logging struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

func (s *Service) Stat(r pz.Request) pz.Response {
	path := requestPath(r)
	proc := s.process()
	defer proc.Exit()

	stat, err := proc.Stat(path)
	if err != nil {
		return s.fail("stat", path, err)
	}
	return pz.Ok(pz.JSON(&stat), &logging{Message: "stat", Path: path})
}

type Listing struct {
	Path    string     `json:"path"`
	Entries []DirEntry `json:"entries"`
}

func (s *Service) List(r pz.Request) pz.Response {
	path := requestPath(r)
	proc := s.process()
	defer proc.Exit()

	entries, err := proc.ReadDirAll(path)
	if err != nil {
		return s.fail("listing directory", path, err)
	}
	return pz.Ok(
		pz.JSON(&Listing{Path: path, Entries: entries}),
		&logging{Message: "listed directory", Path: path},
	)
}

func (s *Service) Cat(r pz.Request) pz.Response {
	path := requestPath(r)
	proc := s.process()
	defer proc.Exit()

	data, err := proc.ReadFile(path)
	if err != nil {
		return s.fail("reading file", path, err)
	}
	return pz.Ok(
		pz.String(string(data)),
		&logging{Message: "read file", Path: path},
	)
}

func (s *Service) Superblock(r pz.Request) pz.Response {
	sb := s.FS.Superblock()
	return pz.Ok(pz.JSON(&sb))
}

func (s *Service) Usage(r pz.Request) pz.Response {
	usage := s.FS.Usage()
	return pz.Ok(pz.JSON(&usage))
}
