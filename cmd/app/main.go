package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/thoughtmap/internal"
	pkgconfig "github.com/starford/thoughtmap/pkg/config"
)

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

func render(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if d := cmd.Int("depth"); d >= 0 {
		cfg.View.MaxDepth = int(d)
	}

	var w io.Writer = os.Stdout
	if out := cmd.String("out"); out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	ro := internal.RenderOptions{
		Ticks:     int(cmd.Int("ticks")),
		Highlight: cmd.String("highlight"),
	}
	if _, err := internal.Render(ctx, w, ro, internal.WithConfig(cfg)); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "thoughtmap",
		Usage:  "Force-directed map of thought traces with a live API, SSE and MCP tools",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the REST API, event stream and live layout",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools on stdin/stdout",
				Action: mcp,
			},
			{
				Name:   "render",
				Usage:  "Lay out the vault headlessly and write one SVG frame",
				Action: render,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file, - for stdout",
						Value:   "-",
					},
					&cli.IntFlag{
						Name:  "ticks",
						Usage: "Maximum simulation steps before drawing",
						Value: 300,
					},
					&cli.IntFlag{
						Name:  "depth",
						Usage: "Structural depth to show, -1 for the configured value",
						Value: -1,
					},
					&cli.StringFlag{
						Name:  "highlight",
						Usage: "Id of the thought to highlight",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
