package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/hugr-lab/airport-openapi/connector"
	"github.com/hugr-lab/airport-openapi/remote"
)

// session is a remote client plus the connector layers over it.
type session struct {
	cfg    Config
	client *remote.Client
	meta   *connector.Metadata
	splits *connector.SplitSource
}

func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Remote.Logger = slog.Default()
	cfg.Connector.Logger = slog.Default()

	client, err := remote.New(cfg.Remote)
	if err != nil {
		return nil, err
	}
	meta, err := connector.NewMetadata(client, cfg.Connector.WithDefaults())
	if err != nil {
		client.Close()
		return nil, err
	}
	return &session{
		cfg:    cfg,
		client: client,
		meta:   meta,
		splits: connector.NewSplitSource(client, cfg.Connector.WithDefaults()),
	}, nil
}

func (s *session) Close() {
	s.meta.Close()
	s.client.Close()
}

// describe returns the description of schema.table or a not-found error.
func (s *session) describe(ctx context.Context, schema, table string) (*connector.TableDescription, error) {
	name := connector.QualifiedTableName{Schema: schema, Table: table}
	desc, found, err := s.meta.Describe(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%s: %w", name, connector.ErrTableNotFound)
	}
	return desc, nil
}

// withSession runs fn against a fresh session.
func withSession(fn func(ctx context.Context, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd.Context(), s, args)
	}
}

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "List the schemas of the REST service",
	Args:  cobra.NoArgs,
	RunE: withSession(func(ctx context.Context, s *session, _ []string) error {
		schemas, err := s.meta.ListSchemas(ctx)
		if err != nil {
			return err
		}
		return printJSON(schemas)
	}),
}

var tablesCmd = &cobra.Command{
	Use:   "tables [schema]",
	Short: "List the tables of one schema, or of all schemas",
	Args:  cobra.MaximumNArgs(1),
	RunE: withSession(func(ctx context.Context, s *session, args []string) error {
		var schema *string
		if len(args) == 1 {
			schema = &args[0]
		}
		names, err := s.meta.ListTables(ctx, schema)
		if err != nil {
			return err
		}
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = n.String()
		}
		return printJSON(out)
	}),
}

type columnOutput struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	ArrowType string `json:"arrow_type"`
	Comment   string `json:"comment,omitempty"`
}

var describeCmd = &cobra.Command{
	Use:   "describe <schema> <table>",
	Short: "Describe the columns of a table",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(ctx context.Context, s *session, args []string) error {
		desc, err := s.describe(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		schema := desc.ArrowSchema()
		columns := make([]columnOutput, len(desc.Columns))
		for i, c := range desc.Columns {
			columns[i] = columnOutput{
				Name:      c.Name,
				Type:      c.Type.String(),
				ArrowType: schema.Field(i).Type.String(),
				Comment:   c.Comment,
			}
		}
		return printJSON(map[string]any{
			"schema":  desc.Name.Schema,
			"table":   desc.Name.Table,
			"comment": desc.Comment,
			"columns": columns,
		})
	}),
}

var splitsCmd = &cobra.Command{
	Use:   "splits <schema> <table>",
	Short: "List the splits of a table scan",
	Args:  cobra.ExactArgs(2),
	RunE: withSession(func(ctx context.Context, s *session, args []string) error {
		name := connector.QualifiedTableName{Schema: args[0], Table: args[1]}
		splits, err := s.splits.ListSplits(ctx, name, 0)
		if err != nil {
			return err
		}
		tokens := make([]string, len(splits))
		for i, sp := range splits {
			tokens[i] = sp.Token
		}
		return printJSON(tokens)
	}),
}
