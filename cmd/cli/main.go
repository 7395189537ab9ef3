// Command railsim reads a SimulationInput JSON from a file argument (or stdin),
// runs the simulation, and writes the SimulationLog JSON to stdout.
//
// With -osm, the network in the input is replaced by the railway ways and
// stations of an OSM XML extract.
package main

import (
	"encoding/json"
	"encoding/xml"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/engine"
	"github.com/cxd309/railsim/internal/network"
)

func main() {
	osmPath := flag.String("osm", "", "OSM XML file to take the network from")
	verbose := flag.Bool("v", false, "log debug diagnostics")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var (
		data []byte
		err  error
	)

	if flag.NArg() > 0 {
		data, err = os.ReadFile(flag.Arg(0))
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
		os.Exit(1)
	}

	if *osmPath == "" {
		result, err := engine.RunJSON(string(data), logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "simulation error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(result)
		return
	}

	var input engine.SimulationInput
	if err := json.Unmarshal(data, &input); err != nil {
		fmt.Fprintf(os.Stderr, "error decoding input: %v\n", err)
		os.Exit(1)
	}
	net, err := readOSM(*osmPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading osm: %v\n", err)
		os.Exit(1)
	}
	input.Network = net

	result, err := engine.RunInput(input, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simulation error: %v\n", err)
		os.Exit(1)
	}
	if err := json.NewEncoder(os.Stdout).Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "error writing output: %v\n", err)
		os.Exit(1)
	}
}

func readOSM(path string) (network.Data, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return network.Data{}, err
	}
	var o osm.OSM
	if err := xml.Unmarshal(data, &o); err != nil {
		return network.Data{}, fmt.Errorf("decoding %s: %w", path, err)
	}
	return network.FromOSM(&o), nil
}
