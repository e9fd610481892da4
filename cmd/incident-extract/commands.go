package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"incident_extract/config"
	"incident_extract/extract"
	"incident_extract/formatting"
	"incident_extract/internal/app"
	"incident_extract/internal/logging"
	"incident_extract/internal/mcp"
	"incident_extract/internal/pipeline"
	"incident_extract/keywords"
	"incident_extract/mapper"
)

const version = "0.3.0"

type cli struct {
	stdin   io.Reader
	stdout  io.Writer
	cfg     config.Config
	envFile string
	level   string
}

func newRootCmd(stdin io.Reader, stdout io.Writer) *cobra.Command {
	c := &cli{stdin: stdin, stdout: stdout}
	root := &cobra.Command{
		Use:           "incident-extract",
		Short:         "Extract incident attributes from 119 call transcripts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetOut(stdout)
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")
	root.PersistentFlags().StringVar(&c.level, "log-level", "", "debug, info, warn or error (default LOG_LEVEL or info)")

	root.AddCommand(c.serveCmd(), c.extractCmd(), c.normalizeCmd(), c.batchCmd(), c.mcpCmd())
	return root
}

func (c *cli) setup() error {
	if err := config.LoadDotEnv(c.envFile); err != nil {
		return fmt.Errorf("load %s: %w", c.envFile, err)
	}
	level := c.level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if _, err := logging.Init(level, strings.EqualFold(os.Getenv("LOG_FORMAT"), "json")); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		zap.L().Error("config", zap.Error(err))
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, inbox watcher and worker pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), c.cfg)
			if err != nil {
				return c.fail("init", err)
			}
			defer a.Close()
			if err := a.Run(cmd.Context()); err != nil {
				return c.fail("run", err)
			}
			return nil
		},
	}
}

func (c *cli) extractCmd() *cobra.Command {
	var mode string
	var summary bool
	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Extract keywords from a transcript file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := c.readInput(args)
			if err != nil {
				return err
			}
			svc, _, err := app.NewService(cmd.Context(), c.cfg, nil)
			if err != nil {
				return c.fail("init", err)
			}
			var results []extract.Result
			if strings.EqualFold(mode, "both") {
				both, err := svc.ExtractBoth(cmd.Context(), text)
				if err != nil {
					return c.fail("extract", err)
				}
				if !summary {
					return c.printJSON(both)
				}
				results = []extract.Result{both.Facts, both.Insights}
			} else {
				m, err := extract.ParseMode(mode)
				if err != nil {
					return err
				}
				res, err := svc.Extract(cmd.Context(), text, m)
				if err != nil {
					return c.fail("extract", err)
				}
				if !summary {
					return c.printJSON(res)
				}
				results = []extract.Result{res}
			}
			for _, r := range results {
				fmt.Fprintf(c.stdout, "[%s] %s\n", r.Model, formatting.RenderSummary(r.Keywords))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "insights", "facts, insights or both")
	cmd.Flags().BoolVar(&summary, "summary", false, "print a one-line summary instead of JSON")
	return cmd
}

func (c *cli) normalizeCmd() *cobra.Command {
	var fromTranscript bool
	var pk int
	var reportDatetime string
	cmd := &cobra.Command{
		Use:   "normalize [file|-]",
		Short: "Map raw records (JSON object or array) or a transcript to the nested form",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := c.readInput(args)
			if err != nil {
				return err
			}
			if fromTranscript {
				opts := mapper.TranscriptOptions{ReportDatetime: reportDatetime}
				if cmd.Flags().Changed("fire-data-pk") {
					opts.FireDataPK = &pk
				}
				n, err := mapper.FromTranscript(input, nil, opts)
				if err != nil {
					return c.fail("normalize", err)
				}
				return c.printJSON(n)
			}

			raws, err := pipeline.DecodeRecords([]byte(input))
			if err != nil {
				return fmt.Errorf("decode records: %w", err)
			}
			out := make([]mapper.Nested, 0, len(raws))
			var errs []error
			for i, raw := range raws {
				n, err := mapper.Normalize(raw)
				if err != nil {
					errs = append(errs, fmt.Errorf("record %d: %w", i, err))
					continue
				}
				out = append(out, n)
			}
			if !strings.HasPrefix(strings.TrimSpace(input), "[") && len(out) == 1 {
				return c.printJSON(out[0])
			}
			if err := c.printJSON(out); err != nil {
				return err
			}
			if err := errors.Join(errs...); err != nil {
				return c.fail("normalize", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromTranscript, "transcript", false, "treat the input as a call transcript")
	cmd.Flags().IntVar(&pk, "fire-data-pk", 0, "record key to attach (transcript mode)")
	cmd.Flags().StringVar(&reportDatetime, "report-datetime", "", "report time (transcript mode, default now)")
	return cmd
}

func (c *cli) batchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Process every pending inbox file once and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context(), c.cfg)
			if err != nil {
				return c.fail("init", err)
			}
			defer a.Close()
			summary, err := a.Batch(cmd.Context(), limit)
			if err != nil {
				return c.fail("batch", err)
			}
			return c.printJSON(map[string]any{"backfill": summary, "metrics": a.Metrics().Snapshot()})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum files to process (0 = all pending)")
	return cmd
}

func (c *cli) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the extraction tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, prompt, err := app.NewService(cmd.Context(), c.cfg, nil)
			if err != nil {
				return c.fail("init", err)
			}
			if err := prompt.Watch(cmd.Context()); err != nil {
				zap.L().Warn("prompt watch disabled", zap.Error(err))
			}
			return mcp.ServeStdio(mcp.NewServer(mcp.ServerConfig{Service: svc, Version: version}))
		},
	}
}

// readInput reads the named file, or stdin for "-" or no argument.
func (c *cli) readInput(args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(c.stdin)
		return string(data), err
	}
	data, err := os.ReadFile(args[0])
	return string(data), err
}

func (c *cli) printJSON(v any) error {
	enc := json.NewEncoder(c.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) fail(stage string, err error) error {
	fields := []zap.Field{zap.String("stage", stage), zap.Error(err)}
	if errors.Is(err, keywords.ErrSchemaViolation) {
		fields = append(fields, zap.Bool("schema_violation", true))
	}
	zap.L().Error("command failed", fields...)
	return err
}
