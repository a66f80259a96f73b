package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pharmachain/trustscore/internal/config"
	"github.com/pharmachain/trustscore/internal/container"
	"github.com/pharmachain/trustscore/pkg/utils"
)

type globalOpts struct {
	configPath string
	format     string
	noColor    bool
	verbose    bool
}

// app is one CLI invocation's wired container plus its renderer
type app struct {
	container *container.Container
	render    *renderer
}

func openApp(ctx context.Context, opts *globalOpts, out io.Writer) (*app, error) {
	r, err := newRenderer(out, opts.format, !opts.noColor)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if opts.verbose {
		logger, err = utils.NewLogger(utils.LoggerConfig{
			Level:      cfg.Logger.Level,
			OutputPath: "stderr",
			Format:     utils.LogFormatConsole,
			Service:    "trustctl",
			NoColor:    opts.noColor,
		})
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	cc := cfg.ToContainerConfig()
	cc.DisableWorkers = true

	c, err := container.NewContainer(cc, logger)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	return &app{container: c, render: r}, nil
}

func (a *app) Close() {
	_ = a.container.Close()
	_ = a.container.Logger().Sync()
}
