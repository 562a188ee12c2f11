package app

import (
	"fmt"
	"io"

	"github.com/gosuri/uitable"
	"gopkg.in/yaml.v3"

	"github.com/autopeer-io/installer/internal/hardware/graphics"
)

type quirkTables struct {
	Install []graphics.Entry `yaml:"install"`
	Runtime []graphics.Entry `yaml:"runtime"`
}

func printQuirks(out io.Writer, format string) error {
	tables := quirkTables{
		Install: graphics.InstallTable.Entries(),
		Runtime: graphics.RuntimeTable.Entries(),
	}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(tables); err != nil {
			return fmt.Errorf("encode quirks: %w", err)
		}
		return enc.Close()
	default:
		table := uitable.New()
		table.MaxColWidth = 40
		table.AddRow("SCOPE", "SOURCE", "IDENTITY", "POLICY")
		for _, e := range tables.Install {
			table.AddRow("install", "product_version", e.Identity, e.Policy)
		}
		for _, e := range tables.Runtime {
			table.AddRow("runtime", "product_name", e.Identity, e.Policy)
		}
		_, err := fmt.Fprintln(out, table)
		return err
	}
}
