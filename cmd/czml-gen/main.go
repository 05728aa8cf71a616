package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"

	"github.com/signalsfoundry/czml-forge/czml"
	"github.com/signalsfoundry/czml-forge/internal/catalog"
	"github.com/signalsfoundry/czml-forge/internal/logging"
	"github.com/signalsfoundry/czml-forge/internal/scenario"
)

func main() {
	scenarioPath := flag.String("scenario", "", "Path to a JSON scenario file (required)")
	outPath := flag.String("out", "", "Output file; stdout when empty")
	pretty := flag.Bool("pretty", false, "Indent the emitted document")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *scenarioPath == "" {
		log.Error(ctx, "missing -scenario flag")
		flag.Usage()
		os.Exit(2)
	}

	f, err := os.Open(*scenarioPath)
	if err != nil {
		log.Error(ctx, "failed to open scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	scn, err := scenario.Parse(f)
	f.Close()
	if err != nil {
		log.Error(ctx, "failed to parse scenario", logging.String("path", *scenarioPath), logging.String("error", err.Error()))
		os.Exit(1)
	}

	cat := catalog.New()
	summary, err := scn.Load(cat, filepath.Dir(*scenarioPath))
	if err != nil {
		log.Error(ctx, "failed to load scenario", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "scenario loaded",
		logging.String("path", *scenarioPath),
		logging.Int("entities", len(summary.EntityIDs)),
		logging.Int("geometries", len(summary.GeometryIDs)),
	)

	opts, err := scn.DocumentOptions()
	if err != nil {
		log.Error(ctx, "invalid document settings", logging.String("error", err.Error()))
		os.Exit(1)
	}
	doc, err := czml.Assemble(cat.List(), opts...)
	if err != nil {
		log.Error(ctx, "failed to assemble document", logging.String("error", err.Error()))
		os.Exit(1)
	}

	var data []byte
	if *pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		log.Error(ctx, "failed to encode document", logging.String("error", err.Error()))
		os.Exit(1)
	}
	data = append(data, '\n')

	if *outPath == "" {
		os.Stdout.Write(data)
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Error(ctx, "failed to write document", logging.String("path", *outPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "document written",
		logging.String("path", *outPath),
		logging.Int("bytes", len(data)),
	)
}
