// Command glimpse is the reference binary, wired to the demo catalog.
package main

import (
	"log/slog"
	"os"

	"github.com/reglet-dev/glimpse/cli"
	"github.com/reglet-dev/glimpse/internal/demo"
)

func main() {
	set, err := demo.Catalog()
	if err != nil {
		slog.Error("failed to register demo types", "error", err)
		os.Exit(1)
	}
	os.Exit(cli.Execute(set, cli.WithTargets(demo.Targets)))
}
