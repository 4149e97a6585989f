package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"physics-lab/entities/simulation"
	"physics-lab/tools/catalog"
	"physics-lab/tools/mcpserver"
)

const version = "0.1.0"

func main() {
	// CLI flags
	description := flag.String("d", "", "Request to send to the model")
	descFile := flag.String("f", "", "File containing the request")
	configFile := flag.String("config", "", "YAML config file")
	sceneFile := flag.String("scene", "", "YAML file of drawings and connections to send with the request")
	apiKey := flag.String("key", "", "Anthropic API key (or set ANTHROPIC_API_KEY env)")
	model := flag.String("model", "", "Model to use")
	provider := flag.String("provider", "", "Model provider: anthropic or local")
	localURL := flag.String("local-url", "", "Chat completions URL of the local model server")
	duration := flag.Duration("duration", 5*time.Second, "Simulated time to run after the request")
	serveAddr := flag.String("serve", "", "Serve the lab over websocket on this address (e.g. :8080)")
	mcpMode := flag.Bool("mcp", false, "Expose the action catalog as MCP tools over stdio")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Physics Lab - AI-driven 2D rigid-body simulation

Usage:
  physics-lab -d "request" [options]
  physics-lab -scene drawings.yaml [-d "request"] [options]
  physics-lab -serve :8080 [options]
  physics-lab -mcp [options]

Options:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  physics-lab -d "a ball rolling down a 30 degree ramp"
  physics-lab -scene lever.yaml -duration 10s -v
  physics-lab -provider local -serve :8080

Environment:
  ANTHROPIC_API_KEY - API key for Claude (alternative to -key flag)
`)
	}

	flag.Parse()

	// defaults < config file < environment < flags
	config, err := LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.applyEnv(os.Getenv)
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "key":
			config.AnthropicKey = *apiKey
		case "model":
			config.Model = *model
		case "provider":
			config.Provider = *provider
		case "local-url":
			config.LocalURL = *localURL
		case "v":
			config.VerboseLogging = *verbose
		}
	})

	// Get description
	desc := *description
	if desc == "" && *descFile != "" {
		content, err := os.ReadFile(*descFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading request file: %v\n", err)
			os.Exit(1)
		}
		desc = string(content)
	}

	oneShot := *serveAddr == "" && !*mcpMode
	if oneShot && desc == "" && *sceneFile == "" {
		fmt.Fprintln(os.Stderr, "Error: a request (-d or -f) or a scene (-scene) is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := config.validate(!*mcpMode); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	client, err := newClient(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	lab, err := NewLab(config, client, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating lab: %v\n", err)
		os.Exit(1)
	}

	if *sceneFile != "" {
		scene, err := LoadScene(*sceneFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		lab.LoadScene(scene)
	}

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	switch {
	case *mcpMode:
		go lab.Simulation().Run(ctx, nil)
		server := mcpserver.New(lab, catalog.Physics(), version, lab.log)
		if err := mcpserver.Serve(ctx, server); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *serveAddr != "":
		if err := lab.Serve(ctx, *serveAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		if err := runOnce(ctx, lab, desc, *duration); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
}

// runOnce sends one request, advances the world by d of simulated time and
// prints where every labelled body ended up
func runOnce(ctx context.Context, lab *Lab, desc string, d time.Duration) error {
	result, err := lab.SendPrompt(ctx, desc)
	if err != nil {
		return err
	}
	if result.Explanation != "" {
		fmt.Printf("\n%s\n", result.Explanation)
	}
	for _, a := range result.Actions {
		mark := "ok"
		switch {
		case a.Skipped:
			mark = "skipped"
		case !a.Success:
			mark = "failed"
		}
		fmt.Printf("  %-24s %-8s %s\n", a.Name, mark, a.Message)
	}
	fmt.Printf("%s\n", result.Status())

	sim := lab.Simulation()
	dt := 1 / sim.Config().StepRate
	for t := 0.0; t < d.Seconds(); t += dt {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sim.Step(dt)
	}

	objects := lab.Objects()
	if len(objects) == 0 {
		return nil
	}
	fmt.Printf("\nAfter %s:\n", d)
	for _, o := range objects {
		printReport(o)
	}
	return nil
}

func printReport(r simulation.BodyReport) {
	fmt.Printf("  %-12s x=%6.2fm y=%6.2fm v=(%6.2f, %6.2f)m/s angle=%6.1f° mass=%.2fkg KE=%.2fJ PE=%.2fJ\n",
		r.Label, r.X, r.Y, r.VX, r.VY, r.AngleDeg, r.Mass, r.Kinetic, r.Potential)
}
