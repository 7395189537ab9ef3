//go:build js && wasm

// Command wasm exposes the rail simulator to the browser via WebAssembly.
// After loading, it registers two global JavaScript functions:
//
//	runSimulation(jsonString) -> jsonString
//	validateRoute(jsonString) -> jsonString
//
// runSimulation takes a SimulationInput and returns a SimulationLog, the same
// contract used by the CLI. validateRoute takes {"network": ..., "ways": [...]}
// and reports whether the ways chain into one route, so a drawing tool can
// check a route before submitting it.
package main

import (
	"encoding/json"
	"log/slog"
	"os"
	"syscall/js"

	"github.com/paulmach/osm"

	"github.com/cxd309/railsim/internal/engine"
	"github.com/cxd309/railsim/internal/network"
	"github.com/cxd309/railsim/internal/route"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

type validateInput struct {
	Network network.Data `json:"network"`
	Ways    []osm.WayID  `json:"ways"`
}

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	js.Global().Set("validateRoute", js.FuncOf(validateRoute))
	select {} // keep the WASM module alive until the page is closed
}

func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := engine.RunJSON(args[0].String(), logger)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}

func validateRoute(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	var in validateInput
	if err := json.Unmarshal([]byte(args[0].String()), &in); err != nil {
		return map[string]any{"error": "invalid input JSON: " + err.Error()}
	}
	net := network.New(in.Network, logger)
	out, err := json.Marshal(route.Validate(net, in.Ways))
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return string(out)
}
