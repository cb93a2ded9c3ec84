// Command cortex computes behavioral features for participants of a LAMP
// deployment.
//
//	cortex list
//	cortex <feature> --id ID --start MS --end MS [--resolution MS] [--param k=v]...
//	cortex run --id ID[,ID...] --features F[,F...] [--start MS --end MS]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/config"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/feature"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/logging"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/orchestrator"
	"github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/pkg/output"

	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/primary"
	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/raw"
	_ "github.com/BIDMCDigitalPsychiatry/LAMP-cortex-sub000/internal/secondary"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cortex: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("a feature name or subcommand is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	command := args[0]
	if command == "list" {
		for _, name := range feature.Names() {
			fmt.Println(name)
		}
		return nil
	}

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	var (
		id         = fs.String("id", "", "participant, study, or researcher id")
		start      = fs.Int64("start", 0, "window start, ms since epoch")
		end        = fs.Int64("end", 0, "window end, ms since epoch")
		resolution = fs.Int64("resolution", 0, "secondary window size, ms")
		features   = fs.String("features", "", "comma-separated feature names (run)")
		format     = fs.String("format", cfg.OutputFormat, "output format: json, yaml, csv")
		accessKey  = fs.String("access-key", cfg.AccessKey, "backend access key")
		secretKey  = fs.String("secret-key", cfg.SecretKey, "backend secret key")
		server     = fs.String("server-address", cfg.ServerAddress, "backend address")
		noCache    = fs.Bool("no-cache", !cfg.CacheEnabled, "disable the local cache")
		logLevel   = fs.String("log-level", cfg.LogLevel, "log level")
	)
	params := paramFlags{}
	fs.Var(&params, "param", "feature parameter as key=value, repeatable")

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg.AccessKey = *accessKey
	cfg.SecretKey = *secretKey
	cfg.ServerAddress = *server
	cfg.CacheEnabled = !*noCache
	cfg.OutputFormat = *format

	if !output.Valid(cfg.OutputFormat) {
		return fmt.Errorf("unknown output format %q", cfg.OutputFormat)
	}

	logger, err := logging.New(*logLevel, "console")
	if err != nil {
		return err
	}
	defer logger.Sync()

	sess := feature.NewSession(cfg, logger)
	ctx := context.Background()

	if command == "run" {
		return runOrchestrator(ctx, sess, *id, *features, orchestrator.Options{
			Start:      *start,
			End:        *end,
			Resolution: *resolution,
			Params:     params.values,
		}, cfg.OutputFormat)
	}

	if !feature.Exists(command) {
		return fmt.Errorf("unknown feature %q", command)
	}
	if *id == "" {
		return fmt.Errorf("--id is required")
	}
	if *start <= 0 && *end <= 0 {
		return fmt.Errorf("--start and --end are required")
	}

	res, err := feature.Call(ctx, sess, command, feature.Request{
		ID:         *id,
		Start:      *start,
		End:        *end,
		Resolution: *resolution,
		Params:     params.values,
	})
	if err != nil {
		return err
	}
	return output.Encode(os.Stdout, cfg.OutputFormat, res)
}

func runOrchestrator(ctx context.Context, sess *feature.Session, ids, features string, opts orchestrator.Options, format string) error {
	if ids == "" {
		return fmt.Errorf("--id is required")
	}
	if features == "" {
		return fmt.Errorf("--features is required")
	}

	tables, err := orchestrator.Run(ctx, sess,
		splitList(ids), splitList(features), opts)
	if err != nil {
		return err
	}

	if format == output.FormatCSV {
		for _, table := range tables {
			if err := output.Encode(os.Stdout, format, table.Rows); err != nil {
				return err
			}
		}
		return nil
	}
	return output.Encode(os.Stdout, format, tables)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// paramFlags collects repeated --param key=value flags. Values parse as
// JSON when possible so numbers, booleans, and structured options come
// through typed; anything else stays a string.
type paramFlags struct {
	values map[string]interface{}
}

func (p *paramFlags) String() string {
	return fmt.Sprint(p.values)
}

func (p *paramFlags) Set(s string) error {
	key, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected key=value, got %q", s)
	}
	if p.values == nil {
		p.values = make(map[string]interface{})
	}

	var typed interface{}
	if err := json.Unmarshal([]byte(value), &typed); err == nil {
		p.values[key] = typed
	} else {
		p.values[key] = value
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  cortex list
  cortex <feature> --id ID --start MS --end MS [--resolution MS] [--param k=v]...
  cortex run --id ID[,ID...] --features F[,F...] [--start MS --end MS]`)
}
