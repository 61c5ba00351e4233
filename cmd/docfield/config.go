package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benjaminschreck/go-docfield/pkg/docfield"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/resolvers/redisvars"
	"github.com/benjaminschreck/go-docfield/pkg/docfield/resolvers/sqlmerge"
)

const defaultConfigFile = "docfield.yaml"

// fileData is the document data part of docfield.yaml. The engine settings
// in the same file are read by docfield.LoadConfigFile.
type fileData struct {
	Properties map[string]interface{}   `yaml:"properties"`
	Variables  map[string]interface{}   `yaml:"variables"`
	Bookmarks  map[string]interface{}   `yaml:"bookmarks"`
	Merge      map[string]interface{}   `yaml:"merge"`
	Resolvers  []map[string]interface{} `yaml:"resolvers"`
}

type staticBlock struct {
	Kind   string                 `mapstructure:"kind"`
	Values map[string]interface{} `mapstructure:"values"`
}

type redisBlock struct {
	Kind     string `mapstructure:"kind"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type sqliteBlock struct {
	Path  string        `mapstructure:"path"`
	Table string        `mapstructure:"table"`
	Where string        `mapstructure:"where"`
	Args  []interface{} `mapstructure:"args"`
	Row   int           `mapstructure:"row"`
}

// app holds what every command needs: configuration, logger and the
// resolvers built from the configuration file.
type app struct {
	cfg       *docfield.Config
	data      fileData
	logger    *docfield.Logger
	resolvers []docfield.ValueResolver
	sources   []*sqlmerge.Source
	closers   []io.Closer
}

// loadApp reads the configuration named by the --config flag.
func loadApp(cmd *cobra.Command) (*app, error) {
	path, _ := cmd.Flags().GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	a, err := newAppFromFile(cmd.Context(), path, explicit)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		a.cfg.LogLevel = level
		a.logger.SetLevel(docfield.ParseLogLevel(level))
	}
	return a, nil
}

// newAppFromFile loads path. A missing file falls back to the environment
// unless required is set.
func newAppFromFile(ctx context.Context, path string, required bool) (*app, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			cfg := docfield.ConfigFromEnvironment()
			if err := cfg.Validate(); err != nil {
				return nil, err
			}
			return newApp(ctx, cfg, fileData{})
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := docfield.LoadConfigFile(path)
	if err != nil {
		return nil, err
	}
	var data fileData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return newApp(ctx, cfg, data)
}

func newApp(ctx context.Context, cfg *docfield.Config, data fileData) (*app, error) {
	a := &app{
		cfg:    cfg,
		data:   data,
		logger: docfield.NewLogger(os.Stderr, docfield.ParseLogLevel(cfg.LogLevel)),
	}
	if len(data.Merge) > 0 {
		a.resolvers = append(a.resolvers, docfield.NewMapResolver(docfield.ResolveMergeField, data.Merge))
	}
	for i, block := range data.Resolvers {
		r, err := a.buildResolver(ctx, block)
		if err != nil {
			a.Close()
			return nil, docfield.WithContext(err, "resolver config", docfield.Fields{"index": i})
		}
		a.resolvers = append(a.resolvers, r)
	}
	return a, nil
}

func (a *app) buildResolver(ctx context.Context, block map[string]interface{}) (docfield.ValueResolver, error) {
	typ := strings.ToLower(cast.ToString(block["type"]))
	delete(block, "type")

	switch typ {
	case "static":
		var b staticBlock
		if err := mapstructure.Decode(block, &b); err != nil {
			return nil, fmt.Errorf("failed to decode static resolver: %w", err)
		}
		kind, err := docfield.ParseResolveKind(b.Kind)
		if err != nil {
			return nil, err
		}
		return docfield.NewMapResolver(kind, b.Values), nil

	case "redis":
		var b redisBlock
		if err := mapstructure.Decode(block, &b); err != nil {
			return nil, fmt.Errorf("failed to decode redis resolver: %w", err)
		}
		if b.Address == "" {
			return nil, errors.New("redis resolver missing address")
		}
		opts := []redisvars.Option{}
		if b.Key != "" {
			opts = append(opts, redisvars.WithKey(b.Key))
		}
		if b.Kind != "" {
			kind, err := docfield.ParseResolveKind(b.Kind)
			if err != nil {
				return nil, err
			}
			opts = append(opts, redisvars.WithKind(kind))
		}
		r := redisvars.New(b.Address, b.Password, b.DB, opts...)
		a.closers = append(a.closers, r)
		return r, nil

	case "sqlite":
		var b sqliteBlock
		if err := mapstructure.Decode(block, &b); err != nil {
			return nil, fmt.Errorf("failed to decode sqlite resolver: %w", err)
		}
		if b.Path == "" || b.Table == "" {
			return nil, errors.New("sqlite resolver needs path and table")
		}
		var opts []sqlmerge.Option
		if b.Where != "" {
			opts = append(opts, sqlmerge.WithFilter(b.Where, b.Args...))
		}
		src, err := sqlmerge.Open(b.Path, b.Table, opts...)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, src)
		if b.Row > 0 {
			if err := src.Select(ctx, b.Row); err != nil {
				return nil, err
			}
		}
		a.sources = append(a.sources, src)
		return src, nil

	case "":
		return nil, errors.New("resolver missing type")
	default:
		return nil, fmt.Errorf("unknown resolver type: %s", typ)
	}
}

// newContext creates an EvalContext seeded from the configuration file.
// extra resolvers are consulted before the configured ones.
func (a *app) newContext(extra []docfield.ValueResolver, opts ...docfield.Option) *docfield.EvalContext {
	resolvers := append(append([]docfield.ValueResolver{}, extra...), a.resolvers...)
	base := []docfield.Option{
		docfield.WithConfig(a.cfg),
		docfield.WithLogger(a.logger),
		docfield.WithResolvers(resolvers...),
	}
	ec := docfield.NewEvalContext(append(base, opts...)...)
	seed(ec, a.data.Properties, a.data.Variables, a.data.Bookmarks)
	return ec
}

// seed copies literal values into the context.
func seed(ec *docfield.EvalContext, properties, variables, bookmarks map[string]interface{}) {
	for name, v := range properties {
		ec.SetProperty(name, docfield.ValueOf(v))
	}
	for name, v := range variables {
		ec.SetDocVariable(name, cast.ToString(v))
	}
	for name, v := range bookmarks {
		ec.SetBookmarkText(name, cast.ToString(v))
	}
}

// selectRecord makes row n current in every sqlite source.
func (a *app) selectRecord(ctx context.Context, n int) error {
	for _, src := range a.sources {
		if err := src.Select(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) Close() error {
	errs := docfield.NewMultiError()
	for _, c := range a.closers {
		errs.Add(c.Close())
	}
	a.closers = nil
	return errs.Err()
}
