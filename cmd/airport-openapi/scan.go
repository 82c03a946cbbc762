package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/airport-openapi/connector"
)

var scanCmd = &cobra.Command{
	Use:   "scan <schema> <table>",
	Short: "Stream the rows of a table as JSON lines",
	Long: `scan reads every split of a table, or only --split, and prints one JSON
object per row. --where col=value conditions are pushed down to the service
and checked again locally.`,
	Args: cobra.ExactArgs(2),
	RunE: withSession(runScan),
}

var scanOpts struct {
	columns []string
	where   []string
	split   string
	limit   int
}

func init() {
	f := scanCmd.Flags()
	f.StringSliceVar(&scanOpts.columns, "columns", nil, "columns to print (default: all)")
	f.StringArrayVar(&scanOpts.where, "where", nil, "equality condition col=value (repeatable)")
	f.StringVar(&scanOpts.split, "split", "", "read only this split token")
	f.IntVar(&scanOpts.limit, "limit", 0, "stop after this many rows (0: no limit)")
}

type condition struct {
	column string
	value  string
}

func parseConditions(where []string) ([]condition, error) {
	out := make([]condition, 0, len(where))
	for _, w := range where {
		col, val, ok := strings.Cut(w, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid --where %q, expected col=value", w)
		}
		out = append(out, condition{column: col, value: val})
	}
	return out, nil
}

func runScan(ctx context.Context, s *session, args []string) error {
	limit := scanOpts.limit
	conditions, err := parseConditions(scanOpts.where)
	if err != nil {
		return err
	}

	desc, err := s.describe(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	handles, err := s.meta.ColumnHandles(ctx, connector.TableHandle{Table: desc.Name})
	if err != nil {
		return err
	}

	printed := scanOpts.columns
	if len(printed) == 0 {
		for _, c := range desc.Columns {
			printed = append(printed, c.Name)
		}
	}

	// Fetch the printed columns plus the ones conditions need.
	var fetch []connector.ColumnHandle
	index := map[string]int{}
	want := func(name string) error {
		if _, ok := index[name]; ok {
			return nil
		}
		h, ok := handles[name]
		if !ok {
			return fmt.Errorf("unknown column %q in %s", name, desc.Name)
		}
		index[name] = len(fetch)
		fetch = append(fetch, h)
		return nil
	}
	for _, name := range printed {
		if err := want(name); err != nil {
			return err
		}
	}

	domains := map[connector.ColumnHandle]connector.Domain{}
	for _, c := range conditions {
		if err := want(c.column); err != nil {
			return err
		}
		h := handles[c.column]
		d := connector.SingleValue([]byte(c.value))
		if prev, ok := domains[h]; ok {
			d = prev.Intersect(d)
		}
		domains[h] = d
	}
	constraint, skipped := connector.EncodePredicate(domains)
	for _, sk := range skipped {
		slog.WarnContext(ctx, "Condition not pushed down", "column", sk.Column, "reason", sk.Reason)
	}

	var splits []connector.Split
	if scanOpts.split != "" {
		splits = []connector.Split{{Token: scanOpts.split, Table: desc.Name, Location: s.client.BaseURL()}}
	} else if splits, err = s.splits.ListSplits(ctx, desc.Name, 0); err != nil {
		return err
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	enc := json.NewEncoder(out)

	rows := 0
	for _, split := range splits {
		pr, err := connector.NewPageReader(s.client, split, fetch, constraint, s.cfg.Connector.WithDefaults())
		if err != nil {
			return err
		}
		for !pr.IsFinished() {
			page, err := pr.FetchNext(ctx)
			if err != nil {
				return err
			}
			if page == nil {
				continue
			}
			n, err := writeRows(enc, page, printed, index, conditions, limit-rows)
			page.Release()
			if err != nil {
				return err
			}
			rows += n
			if limit > 0 && rows >= limit {
				return nil
			}
		}
		slog.DebugContext(ctx, "Split drained",
			"split", split.Token,
			"rows", pr.CompletedPositions(),
			"bytes", pr.CompletedBytes(),
			"read_time", pr.ReadTime(),
		)
	}
	return nil
}

// writeRows prints the rows of page that satisfy conditions, at most limit
// when limit is positive.
func writeRows(enc *json.Encoder, page *connector.Page, printed []string, index map[string]int, conditions []condition, limit int) (int, error) {
	if page.Record.NumCols() == 0 {
		return 0, nil
	}
	cols := make([]*array.String, page.Record.NumCols())
	for i := range cols {
		col, ok := page.Record.Column(i).(*array.String)
		if !ok {
			return 0, fmt.Errorf("column %s is %s, not a string", page.Record.ColumnName(i), page.Record.Column(i).DataType())
		}
		cols[i] = col
	}

	n := 0
rows:
	for r := 0; r < int(page.Record.NumRows()); r++ {
		for _, c := range conditions {
			col := cols[index[c.column]]
			if col.IsNull(r) || col.Value(r) != c.value {
				continue rows
			}
		}

		row := make(map[string]any, len(printed))
		for _, name := range printed {
			col := cols[index[name]]
			if col.IsNull(r) {
				row[name] = nil
			} else {
				row[name] = col.Value(r)
			}
		}
		if err := enc.Encode(row); err != nil {
			return n, err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return n, nil
}
