package main

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type PushTrigger struct {
	Branches []string `yaml:"branches,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

type Trigger struct {
	Push PushTrigger `yaml:"push,omitempty"`
}

type Args map[string]interface{}

type Step struct {
	Name string `yaml:"name,omitempty"`
	If   string `yaml:"if,omitempty"`
	Uses string `yaml:"uses,omitempty"`
	ID   string `yaml:"id,omitempty"`
	Run  string `yaml:"run,omitempty"`
	With Args   `yaml:"with,omitempty"`
}

type Job struct {
	RunsOn string `yaml:"runs-on"`
	Steps  []Step `yaml:"steps"`
}

type Workflow struct {
	Name string  `yaml:"name"`
	On   Trigger `yaml:"on,omitempty"`
	Jobs map[string]Job
}

const goVersion = "1.22"

// Platforms are the GOOS/GOARCH pairs a release is cross-compiled for.
var Platforms = []Platform{
	{OS: "linux", Arch: "amd64"},
	{OS: "linux", Arch: "arm64"},
	{OS: "darwin", Arch: "arm64"},
}

type Platform struct {
	OS   string
	Arch string
}

// Binary is a command under `cmd/` that gets built for every platform and
// attached to tagged releases.
type Binary struct {
	// The name of the GitHub Action Job as well as the prefix of every
	// artifact, e.g. `dist/sectorfs-linux-amd64`.
	Name string

	// The package to build, relative to the repo root.
	Package string
}

func GoBinary(target string) *Binary {
	return &Binary{Name: target, Package: "./cmd/" + target}
}

func setupSteps() []Step {
	return []Step{{
		Name: "Checkout",
		Uses: "actions/checkout@v4",
	}, {
		Name: "Set up Go",
		Uses: "actions/setup-go@v5",
		With: Args{"go-version": goVersion},
	}}
}

// WorkflowCI vets and tests every package on every push.
func WorkflowCI() Workflow {
	return Workflow{
		Name: "ci",
		On: Trigger{
			Push: PushTrigger{Branches: []string{"*"}},
		},
		Jobs: map[string]Job{
			"test": {
				RunsOn: "ubuntu-latest",
				Steps: append(setupSteps(), Step{
					Name: "Vet",
					Run:  "go vet ./...",
				}, Step{
					Name: "Test",
					Run:  "go test ./...",
				}),
			},
		},
	}
}

func WorkflowRelease(binaries ...*Binary) Workflow {
	jobs := make(map[string]Job, len(binaries))
	for _, binary := range binaries {
		jobs[binary.Name] = JobRelease(binary)
	}
	return Workflow{
		Name: "release",
		On: Trigger{
			Push: PushTrigger{
				Branches: []string{"*"},
				Tags:     []string{"v*"},
			},
		},
		Jobs: jobs,
	}
}

// BuildScript cross-compiles `binary` into `dist/` once per platform.
func BuildScript(binary *Binary) string {
	lines := make([]string, len(Platforms))
	for i, platform := range Platforms {
		lines[i] = fmt.Sprintf(
			"CGO_ENABLED=0 GOOS=%s GOARCH=%s go build -o dist/%s-%s-%s %s",
			platform.OS,
			platform.Arch,
			binary.Name,
			platform.OS,
			platform.Arch,
			binary.Package,
		)
	}
	return strings.Join(lines, "\n")
}

func JobRelease(binary *Binary) Job {
	return Job{
		RunsOn: "ubuntu-latest",
		Steps: append(setupSteps(), Step{
			Name: "Build",
			Run:  BuildScript(binary),
		}, Step{
			Name: "Upload",
			Uses: "actions/upload-artifact@v4",
			With: Args{
				"name": binary.Name,
				"path": "dist/",
			},
		}, Step{
			Name: "Release",
			If:   "startsWith(github.ref, 'refs/tags/')",
			Uses: "softprops/action-gh-release@v1",
			With: Args{"files": "dist/*"},
		}),
	}
}

func MarshalToWriter(w io.Writer, v interface{}) error {
	yamlEncoder := yaml.NewEncoder(w)
	yamlEncoder.SetIndent(2)
	if err := yamlEncoder.Encode(v); err != nil {
		return fmt.Errorf("marshaling to YAML: %w", err)
	}
	return nil
}
