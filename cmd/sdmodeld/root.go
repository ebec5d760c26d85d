package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sdmodeld/internal/config"
	"sdmodeld/internal/registry"
	"sdmodeld/internal/session"
)

// options is shared by every subcommand; PersistentPreRunE fills it.
type options struct {
	configPath     string
	modelsDir      string
	customDirs     string
	implementation string
	triggerMarker  string
	logLevel       string

	cfg config.Config
	log zerolog.Logger
}

func newRootCmd() *cobra.Command {
	o := &options{}
	root := &cobra.Command{
		Use:           "sdmodeld",
		Short:         "Stable Diffusion model discovery and prompt preparation service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.configPath, "config", envStr("SDMODELD_CONFIG", ""), "Config file (.yaml|.yml|.json|.toml)")
	pf.StringVar(&o.modelsDir, "models-dir", envStr("SDMODELD_MODELS_DIR", ""), "Builtin models root (default "+config.DefaultModelsDir+")")
	pf.StringVar(&o.customDirs, "custom-dirs", envStr("SDMODELD_CUSTOM_DIRS", ""), "Comma separated custom model roots")
	pf.StringVar(&o.implementation, "implementation", envStr("SDMODELD_IMPLEMENTATION", ""), "Generation backend: "+implementationNames()+" (empty accepts all formats)")
	pf.StringVar(&o.triggerMarker, "trigger-marker", envStr("SDMODELD_TRIGGER_MARKER", ""), "Backend log marker preceding the embedding trigger list")
	pf.StringVar(&o.logLevel, "log-level", envStr("SDMODELD_LOG_LEVEL", ""), "Log level: debug|info|warn|error")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return o.load(cmd.ErrOrStderr())
	}

	root.AddCommand(
		newServeCmd(o),
		newModelsCmd(o),
		newEmbeddingsCmd(o),
		newNormalizeCmd(o),
		newHashCmd(o),
		newIngestCmd(o),
	)
	return root
}

// load merges the config file, environment and flags (flags win) and sets up
// the console logger.
func implementationNames() string {
	var names []string
	for _, impl := range registry.Implementations() {
		names = append(names, impl.String())
	}
	return strings.Join(names, "|")
}

func (o *options) load(stderr io.Writer) error {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	if o.modelsDir != "" {
		cfg.ModelsDir = o.modelsDir
	}
	if dirs := splitCSV(o.customDirs); len(dirs) > 0 {
		cfg.CustomModelDirs = dirs
	}
	if o.implementation != "" {
		cfg.Implementation = o.implementation
	}
	if o.triggerMarker != "" {
		cfg.TriggerMarker = o.triggerMarker
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg

	lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	o.log = zerolog.New(zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}).
		Level(lvl).With().Timestamp().Logger()
	return nil
}

// newSession builds the session all subcommands operate on.
func (o *options) newSession() (*session.Session, error) {
	archs, err := o.cfg.Archs()
	if err != nil {
		return nil, err
	}
	return session.New(session.Config{
		ModelDirs:      o.cfg.ModelDirs(),
		Implementation: o.cfg.Implementation,
		TriggerMarker:  o.cfg.TriggerMarker,
		Archs:          archs,
		Logger:         o.log,
		Publisher:      logPublisher{log: o.log},
	})
}

// logPublisher reports session events through the console logger.
type logPublisher struct{ log zerolog.Logger }

func (p logPublisher) Publish(e session.Event) {
	p.log.Debug().Str("event", e.Name).Fields(e.Fields).Msg("session event")
}
