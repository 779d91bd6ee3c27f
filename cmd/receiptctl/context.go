package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"unikrew/internal/config"
	"unikrew/internal/logging"
	"unikrew/internal/pipeline"
	"unikrew/internal/service"
	s3storage "unikrew/internal/storage/s3"
)

type commandContext struct {
	verbose *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
	cleanup    func()
}

func newCommandContext(verbose *bool) *commandContext {
	return &commandContext{verbose: verbose}
}

// ensureConfig loads configuration from the environment and installs the
// global logger. Logging stays at warn unless --verbose is set so command
// output is not interleaved with pipeline chatter.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load()
		if err != nil {
			c.configErr = fmt.Errorf("loading config: %w", err)
			return
		}
		logCfg := cfg.Log
		if c.verbose == nil || !*c.verbose {
			logCfg.Level = "warn"
		}
		cleanup, err := logging.Setup(logCfg)
		if err != nil {
			c.configErr = fmt.Errorf("setting up logging: %w", err)
			return
		}
		c.config = cfg
		c.cleanup = cleanup
	})
	return c.config, c.configErr
}

func (c *commandContext) close() {
	if c.cleanup != nil {
		c.cleanup()
		c.cleanup = nil
	}
}

// loadImage reads a local file or an s3://bucket/key object. Object storage
// is only dialed when the path needs it.
func (c *commandContext) loadImage(ctx context.Context, path string) (*pipeline.Image, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var source *service.ImageSource
	if strings.HasPrefix(path, "s3://") {
		store, err := s3storage.NewImageStore(ctx, &cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("connecting to object storage: %w", err)
		}
		source = service.NewImageSource(store, "")
	} else {
		source = service.NewImageSource(nil, "")
	}
	return source.Load(ctx, path)
}
