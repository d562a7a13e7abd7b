package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"hivecore.ai/internal/persistence/indexdb"
	"hivecore.ai/internal/persistence/memorydb"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, "admin:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	cmd := "latest"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	fs := pflag.NewFlagSet("admin "+cmd, pflag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	limit := fs.Int("limit", 50, "result limit")
	if err := fs.Parse(args); err != nil {
		return err
	}

	switch cmd {
	case "latest":
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			return err
		}
		defer idx.Close()
		tick, path, err := idx.LatestSnapshot(context.Background())
		if err != nil {
			return err
		}
		return printJSON(out, map[string]any{"tick": tick, "path": path})

	case "history":
		if fs.NArg() != 1 {
			return errors.New("usage: admin history <unit>")
		}
		idx, err := indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			return err
		}
		defer idx.Close()
		rows, err := idx.UnitHistory(context.Background(), fs.Arg(0), *limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			if err := printJSON(out, r); err != nil {
				return err
			}
		}
		return nil

	case "memory":
		st, err := memorydb.Open(filepath.Join(*dataDir, "memory.db"))
		if err != nil {
			return err
		}
		defer st.Close()
		names, err := st.Names()
		if err != nil {
			return err
		}
		for i, n := range names {
			if i >= *limit {
				break
			}
			row := map[string]any{"creep": n}
			rec, err := st.Load(n)
			if err != nil {
				row["error"] = err.Error()
			} else {
				row["role"] = rec.Role.String()
				if rec.Job != nil {
					row["job"] = rec.Job
				}
			}
			if err := printJSON(out, row); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown command %q (want latest, history or memory)", cmd)
}

func printJSON(out io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, string(b))
	return err
}
