package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/weberc2/sectorfs/pkg/config"
	"github.com/weberc2/sectorfs/pkg/fs"
	"github.com/weberc2/sectorfs/pkg/partition"
	"github.com/weberc2/sectorfs/pkg/snapshot"
	"github.com/weberc2/sectorfs/pkg/testsupport"
	"github.com/weberc2/sectorfs/pkg/types"
)

type harness struct {
	image   string
	backend string
	store   *testsupport.ObjectStoreFake
}

func newHarness(t *testing.T, backend string) *harness {
	dir := t.TempDir()
	t.Setenv("SECTORFS_CONFIG_FILE", filepath.Join(dir, "missing.yaml"))
	t.Setenv("SECTORFS_BUCKET", "images")
	return &harness{
		image:   filepath.Join(dir, "disk.img"),
		backend: backend,
		store:   &testsupport.ObjectStoreFake{},
	}
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	a := app{
		stdin:       strings.NewReader(stdin),
		stdout:      &stdout,
		stderr:      &stderr,
		objectStore: h.store,
	}
	err := a.command().Run(append([]string{
		"sectorfs",
		"--image", h.image,
		"--backend", h.backend,
		"--sectors", "1024",
		"--inodes", "64",
		"--log-level", "error",
	}, args...))
	return stdout.String(), err
}

func (h *harness) mustRun(t *testing.T, stdin string, args ...string) string {
	out, err := h.run(stdin, args...)
	if err != nil {
		t.Fatalf("%v: unexpected err: %v", args, err)
	}
	return out
}

func TestCommands(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendBolt} {
		t.Run(backend, func(t *testing.T) {
			h := newHarness(t, backend)
			h.mustRun(t, "", "mkdir", "/etc")
			h.mustRun(t, "nameserver 10.0.0.1\n", "put", "-", "/etc/resolv")

			if out := h.mustRun(t, "", "cat", "/etc/resolv"); out != "nameserver 10.0.0.1\n" {
				t.Fatalf("cat: wanted `nameserver 10.0.0.1\\n`; found `%s`", out)
			}

			var stat fs.Stat
			if err := json.Unmarshal(
				[]byte(h.mustRun(t, "", "stat", "/etc/resolv")),
				&stat,
			); err != nil {
				t.Fatalf("unmarshaling stat: %v", err)
			}
			if stat.Size != 20 || stat.FileType != types.FileTypeRegular {
				t.Fatalf("wanted a 20-byte regular file; found `%+v`", stat)
			}

			var names []string
			for _, line := range strings.Split(
				strings.TrimSpace(h.mustRun(t, "", "ls", "/etc")),
				"\n",
			) {
				names = append(names, strings.Fields(line)[0])
			}
			if diff := cmp.Diff([]string{".", "..", "resolv"}, names); diff != "" {
				t.Fatalf("ls: unexpected entries (-wanted +found):\n%s", diff)
			}

			sizes := map[string]string{}
			for _, line := range strings.Split(
				strings.TrimSpace(h.mustRun(t, "", "ls", "-l", "/etc")),
				"\n",
			) {
				fields := strings.Fields(line)
				sizes[fields[0]] = fields[len(fields)-1]
			}
			if diff := cmp.Diff(
				map[string]string{".": "63", "..": "63", "resolv": "20"},
				sizes,
			); diff != "" {
				t.Fatalf("ls -l: unexpected sizes (-wanted +found):\n%s", diff)
			}

			if _, err := h.run("", "rmdir", "/etc"); !errors.Is(err, types.NotEmptyErr) {
				t.Fatalf("rmdir: wanted `%v`; found `%v`", types.NotEmptyErr, err)
			}
			h.mustRun(t, "", "rm", "/etc/resolv")
			h.mustRun(t, "", "rmdir", "/etc")
			if _, err := h.run("", "stat", "/etc"); !errors.Is(err, types.NotFoundErr) {
				t.Fatalf("stat: wanted `%v`; found `%v`", types.NotFoundErr, err)
			}

			var usage partition.Usage
			if err := json.Unmarshal(
				[]byte(h.mustRun(t, "", "usage")),
				&usage,
			); err != nil {
				t.Fatalf("unmarshaling usage: %v", err)
			}
			if usage.InodesUsed != 1 || usage.BlocksUsed != 1 {
				t.Fatalf("wanted only the root allocated; found `%+v`", usage)
			}
		})
	}
}

func TestProbeAndFormat(t *testing.T) {
	h := newHarness(t, config.BackendFile)
	if _, err := h.run("", "--no-format", "ls"); !errors.Is(
		err,
		partition.NotFormattedErr,
	) {
		t.Fatalf("ls: wanted `%v`; found `%v`", partition.NotFormattedErr, err)
	}
	if _, err := h.run("", "probe"); !errors.Is(err, NotFormattedErr) {
		t.Fatalf("probe: wanted `%v`; found `%v`", NotFormattedErr, err)
	}

	var formatted types.Superblock
	if err := json.Unmarshal([]byte(h.mustRun(t, "", "format")), &formatted); err != nil {
		t.Fatalf("unmarshaling format output: %v", err)
	}
	var probed types.Superblock
	if err := json.Unmarshal([]byte(h.mustRun(t, "", "probe")), &probed); err != nil {
		t.Fatalf("unmarshaling probe output: %v", err)
	}
	if diff := cmp.Diff(formatted, probed); diff != "" {
		t.Fatalf("unexpected superblock (-formatted +probed):\n%s", diff)
	}
	if probed.InodeCount != 64 || probed.SectorCount != 1024 {
		t.Fatalf("wanted 64 inodes over 1024 sectors; found `%+v`", probed)
	}
}

func TestSnapshots(t *testing.T) {
	h := newHarness(t, config.BackendFile)
	h.mustRun(t, "hello", "put", "-", "/greeting")

	var snap snapshot.Snapshot
	if err := json.Unmarshal(
		[]byte(h.mustRun(t, "", "snapshot", "push", "Before Upgrade")),
		&snap,
	); err != nil {
		t.Fatalf("unmarshaling push output: %v", err)
	}
	if snap.Label != "before-upgrade" {
		t.Fatalf("wanted label `before-upgrade`; found `%s`", snap.Label)
	}

	h.mustRun(t, "", "rm", "/greeting")
	h.mustRun(t, "", "snapshot", "pull", snap.Key)
	if out := h.mustRun(t, "", "cat", "/greeting"); out != "hello" {
		t.Fatalf("cat after pull: wanted `hello`; found `%s`", out)
	}

	var snapshots []snapshot.Snapshot
	if err := json.Unmarshal(
		[]byte(h.mustRun(t, "", "snapshot", "list")),
		&snapshots,
	); err != nil {
		t.Fatalf("unmarshaling list output: %v", err)
	}
	if diff := cmp.Diff([]snapshot.Snapshot{snap}, snapshots); diff != "" {
		t.Fatalf("unexpected snapshots (-wanted +found):\n%s", diff)
	}
}

func TestMissingArgument(t *testing.T) {
	h := newHarness(t, config.BackendFile)
	if _, err := h.run("", "cat"); !errors.Is(err, MissingArgErr) {
		t.Fatalf("wanted `%v`; found `%v`", MissingArgErr, err)
	}
}
