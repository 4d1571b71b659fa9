package main

import (
	"flag"
	"log"

	"github.com/danmuck/rconsole/internal/config"
)

func main() {
	output := flag.String("output", "rconsole.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "rconsole.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.Load(*input)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (port=%d exec.timeout=%s)", *input, cfg.Port, cfg.Exec.Timeout)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote config template to %s", *output)
}
