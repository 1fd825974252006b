// Command workflowgen prints the GitHub Actions workflows for this repo,
// e.g. `go run ./cmd/workflowgen release > .github/workflows/release.yml`.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func command() *cli.App {
	return &cli.App{
		Name:  "workflowgen",
		Usage: "print GitHub Actions workflows as YAML",
		Commands: []*cli.Command{{
			Name:  "ci",
			Usage: "vet and test on every push",
			Action: func(ctx *cli.Context) error {
				return MarshalToWriter(ctx.App.Writer, WorkflowCI())
			},
		}, {
			Name:  "release",
			Usage: "cross-compile binaries and attach them to tagged releases",
			Action: func(ctx *cli.Context) error {
				return MarshalToWriter(
					ctx.App.Writer,
					WorkflowRelease(GoBinary("sectorfs")),
				)
			},
		}},
	}
}

func main() {
	if err := command().Run(os.Args); err != nil {
		log.Fatalf("generating workflow: %v", err)
	}
}
