package main

import (
	"flag"
	"os"

	"github.com/danmuck/meshlink/internal/config"
	"github.com/danmuck/meshlink/internal/logging"
	"github.com/rs/zerolog/log"
)

const defaultPath = "cmd/meshlinkctl/config.toml"

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", "daemon", "config kind: daemon|bridge")
	output := flag.String("output", defaultPath, "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", defaultPath, "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.LoadDaemonConfig(*input)
		if err != nil {
			log.Error().Err(err).Str("path", *input).Msg("config invalid")
			os.Exit(1)
		}
		log.Info().
			Str("path", *input).
			Str("name", cfg.Name).
			Int("interfaces", len(cfg.Interfaces)).
			Int("enabled", len(cfg.EnabledInterfaces())).
			Msg("config validated")
		return
	}

	if err := config.WriteTemplate(*output, *kind, *force); err != nil {
		log.Error().Err(err).Str("path", *output).Msg("template write failed")
		os.Exit(1)
	}
	log.Info().Str("kind", *kind).Str("path", *output).Msg("wrote config template")
}
