package main

import (
	"flag"
	"log"

	"github.com/danmuck/dhcptap/internal/config"
)

func main() {
	output := flag.String("output", "dhcptap.toml", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "dhcptap.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		cfg, err := config.LoadTapConfig(*input)
		if err != nil {
			log.Fatal(err)
		}
		brokers, err := cfg.BrokerURLs()
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated config at %s (server %q, topic %q, brokers %v)", *input, cfg.ServerName, cfg.Topic, brokers)
		return
	}

	if err := config.WriteTemplate(*output, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote config template to %s", *output)
}
