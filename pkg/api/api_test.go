package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	pz "github.com/weberc2/httpeasy"
	pztest "github.com/weberc2/httpeasy/testsupport"
	"github.com/weberc2/sectorfs/pkg/disk"
	"github.com/weberc2/sectorfs/pkg/fs"
	"github.com/weberc2/sectorfs/pkg/partition"
	. "github.com/weberc2/sectorfs/pkg/types"
)

func newService(t *testing.T) *Service {
	filesystem, err := fs.New(disk.NewBuffer(512), fs.Options{
		Name:   "sdb1",
		Format: partition.FormatOptions{Inodes: 64},
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	proc := filesystem.NewProcess(nil, nil, nil)
	defer proc.Exit()
	if err := proc.Mkdir("/etc"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := proc.WriteFile("/etc/hosts", []byte("127.0.0.1 localhost\n")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	return &Service{FS: filesystem}
}

func request(path string) pz.Request {
	return pz.Request{Vars: map[string]string{"path": path}}
}

func decode(t *testing.T, rsp pz.Response, v interface{}) {
	data, err := pztest.ReadAll(rsp.Data)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("unmarshaling `%s`: %v", data, err)
	}
}

func TestStat(t *testing.T) {
	service := newService(t)
	for _, testCase := range []struct {
		name         string
		path         string
		wantedStatus int
		wantedType   FileType
		wantedSize   Byte
	}{
		{
			name:         "root",
			path:         "",
			wantedStatus: http.StatusOK,
			wantedType:   FileTypeDir,
			wantedSize:   3 * DirEntrySize,
		},
		{
			name:         "file",
			path:         "etc/hosts",
			wantedStatus: http.StatusOK,
			wantedType:   FileTypeRegular,
			wantedSize:   20,
		},
		{
			name:         "missing",
			path:         "etc/passwd",
			wantedStatus: http.StatusNotFound,
		},
		{
			name:         "through a file",
			path:         "etc/hosts/x",
			wantedStatus: http.StatusBadRequest,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			rsp := service.Stat(request(testCase.path))
			if rsp.Status != testCase.wantedStatus {
				t.Fatalf(
					"status: wanted `%d`; found `%d`",
					testCase.wantedStatus,
					rsp.Status,
				)
			}
			if rsp.Status != http.StatusOK {
				return
			}
			var stat fs.Stat
			decode(t, rsp, &stat)
			if stat.FileType != testCase.wantedType {
				t.Fatalf("wanted `%v`; found `%v`", testCase.wantedType, stat.FileType)
			}
			if stat.Size != testCase.wantedSize {
				t.Fatalf("wanted `%d`; found `%d`", testCase.wantedSize, stat.Size)
			}
		})
	}
}

func TestList(t *testing.T) {
	service := newService(t)
	rsp := service.List(request("etc"))
	if rsp.Status != http.StatusOK {
		t.Fatalf("status: wanted `%d`; found `%d`", http.StatusOK, rsp.Status)
	}
	var listing Listing
	decode(t, rsp, &listing)

	var names []string
	for _, entry := range listing.Entries {
		names = append(names, entry.Name)
	}
	if diff := cmp.Diff([]string{".", "..", "hosts"}, names); diff != "" {
		t.Fatalf("unexpected entries (-wanted +found):\n%s", diff)
	}

	if rsp := service.List(request("etc/hosts")); rsp.Status != http.StatusBadRequest {
		t.Fatalf("status: wanted `%d`; found `%d`", http.StatusBadRequest, rsp.Status)
	}
}

func TestCat(t *testing.T) {
	service := newService(t)
	rsp := service.Cat(request("etc/hosts"))
	if rsp.Status != http.StatusOK {
		t.Fatalf("status: wanted `%d`; found `%d`", http.StatusOK, rsp.Status)
	}
	data, err := pztest.ReadAll(rsp.Data)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(data) != "127.0.0.1 localhost\n" {
		t.Fatalf("wanted `127.0.0.1 localhost\\n`; found `%s`", data)
	}

	if rsp := service.Cat(request("etc")); rsp.Status != http.StatusBadRequest {
		t.Fatalf("status: wanted `%d`; found `%d`", http.StatusBadRequest, rsp.Status)
	}
	if n := service.FS.OpenFiles(); n != 0 {
		t.Fatalf("wanted no open files; found `%d`", n)
	}
}

func TestRoutes(t *testing.T) {
	service := newService(t)
	server := httptest.NewServer(pz.Register(pz.JSONLog(io.Discard), service.Routes()...))
	defer server.Close()

	rsp, err := http.Get(server.URL + "/api/usage")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	defer rsp.Body.Close()
	if rsp.StatusCode != http.StatusOK {
		t.Fatalf("status: wanted `%d`; found `%d`", http.StatusOK, rsp.StatusCode)
	}
	var usage partition.Usage
	if err := json.NewDecoder(rsp.Body).Decode(&usage); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// root, /etc and /etc/hosts
	if usage.InodesUsed != 3 {
		t.Fatalf("wanted `3` inodes in use; found `%d`", usage.InodesUsed)
	}

	rsp, err = http.Get(server.URL + "/api/stat/etc/missing")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	rsp.Body.Close()
	if rsp.StatusCode != http.StatusNotFound {
		t.Fatalf("status: wanted `%d`; found `%d`", http.StatusNotFound, rsp.StatusCode)
	}
}
