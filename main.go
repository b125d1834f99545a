// Command dent evaluates collision deformer scene scripts.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/dent/pkg/engine"
	"github.com/chazu/dent/pkg/host"
)

const (
	flagOut      = "out"
	flagEnvelope = "envelope"
	flagBulge    = "bulge"
	flagLevels   = "levels"
	flagCells    = "cells"
	flagMesh     = "mesh-collider"
	flagVerbose  = "verbose"
)

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCLI() *cli.App {
	var logger *zap.Logger

	outFlag := &cli.StringFlag{
		Name:    flagOut,
		Aliases: []string{"o"},
		Usage:   "write JSON to `FILE` instead of stdout",
	}
	return &cli.App{
		Name:  "dent",
		Usage: "press a collider into a surface and write the result",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagVerbose,
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			var err error
			logger, err = newLogger(c.Bool(flagVerbose))
			return err
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				_ = logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "eval",
				Usage:     "evaluate a scene and write the deformed meshes as JSON",
				ArgsUsage: "<scene>",
				Flags: []cli.Flag{
					outFlag,
					&cli.Float64Flag{Name: flagEnvelope, Usage: "override the deformer envelope (0-1)"},
					&cli.Float64Flag{Name: flagBulge, Usage: "override the bulge multiplier"},
					&cli.IntFlag{Name: flagLevels, Usage: "override the number of bulge rings"},
					&cli.IntFlag{Name: flagCells, Usage: "tessellation resolution of solid targets"},
					&cli.BoolFlag{Name: flagMesh, Usage: "query the tessellated collider instead of its distance field"},
				},
				Action: func(c *cli.Context) error {
					return evalAction(c, logger)
				},
			},
			{
				Name:      "scene",
				Usage:     "evaluate a scene script and print the scene it describes",
				ArgsUsage: "<scene>",
				Flags:     []cli.Flag{outFlag},
				Action: func(c *cli.Context) error {
					return sceneAction(c, logger)
				},
			},
		},
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	return logger, errors.Wrap(err, "building logger")
}

func readSource(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", errors.Errorf("%s: expected one scene file, got %d arguments", c.Command.Name, c.NArg())
	}
	path := c.Args().First()
	if path == "-" {
		b, err := io.ReadAll(c.App.Reader)
		return string(b), errors.Wrap(err, "reading stdin")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "reading scene %q", path)
	}
	return string(b), nil
}

// overrides collects the deformer attributes set on the command line.
func overrides(c *cli.Context) host.AttributeMap {
	attrs := host.AttributeMap{}
	if c.IsSet(flagEnvelope) {
		attrs[host.AttrEnvelope] = c.Float64(flagEnvelope)
	}
	if c.IsSet(flagBulge) {
		attrs[host.AttrBulgeMultiplier] = c.Float64(flagBulge)
	}
	if c.IsSet(flagLevels) {
		attrs[host.AttrLevels] = c.Int(flagLevels)
	}
	return attrs
}

func evalAction(c *cli.Context, logger *zap.Logger) error {
	source, err := readSource(c)
	if err != nil {
		return err
	}
	app := NewApp(logger)
	app.Overrides = overrides(c)
	app.Cells = c.Int(flagCells)
	app.MeshCollider = c.Bool(flagMesh)

	result := app.Evaluate(source)
	if err := writeJSON(c, result); err != nil {
		return err
	}
	if len(result.Errors) > 0 {
		return cli.Exit(fmt.Sprintf("%s: %d error(s), first: %s",
			c.Args().First(), len(result.Errors), result.Errors[0].Message), 1)
	}
	return nil
}

func sceneAction(c *cli.Context, logger *zap.Logger) error {
	source, err := readSource(c)
	if err != nil {
		return err
	}
	s, evalErrs, err := engine.NewEngine(logger).Evaluate(source)
	if err != nil {
		return err
	}
	if len(evalErrs) > 0 {
		return cli.Exit(evalErrs[0].Error(), 1)
	}
	return writeJSON(c, s)
}

func writeJSON(c *cli.Context, v any) error {
	w := c.App.Writer
	if path := c.String(flagOut); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return errors.Wrap(err, "creating output")
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "writing JSON")
}
