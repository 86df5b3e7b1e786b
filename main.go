package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line
type AppOptions struct {
	ConfigFile string
	EnvFile    string
	LayoutFile string
	Watch      bool
	OutputFile string
	Format     string
	ThumbSize  int
	RenderOnly bool
	HTTPMode   bool
	HTTPPort   int
	MQTTMode   bool
	LogLevel   string
}

// Runner is the application surface driven by run
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunRender() error
	RunService() error
}

// run parses args, applies them to app and starts the selected mode
func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("roomplan", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file (optional)")
	fs.StringVar(&opts.EnvFile, "env-file", ".env", "Path to .env file (optional)")
	fs.StringVar(&opts.LayoutFile, "layout", "", "Furniture layout file (YAML or JSON) for --render and service start")
	fs.BoolVar(&opts.Watch, "watch", false, "Reload the --layout file when it changes (service mode)")
	fs.StringVar(&opts.OutputFile, "output", "plan", "Output path without extension for --render mode")
	fs.StringVar(&opts.Format, "format", "svg", "Render format: svg, png, geojson, both (svg+png) or all")
	fs.IntVar(&opts.ThumbSize, "thumb", 0, "Also write a PNG thumbnail of this size in --render mode (0 disables)")
	fs.BoolVar(&opts.RenderOnly, "render", false, "Render the floor plan and exit")
	fs.BoolVar(&opts.HTTPMode, "http", false, "Run the HTTP service")
	fs.IntVar(&opts.HTTPPort, "http-port", 0, "HTTP server port (default from config, 4040)")
	fs.BoolVar(&opts.MQTTMode, "mqtt", false, "Publish layouts and accept commands over MQTT")
	fs.StringVar(&opts.LogLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(out, "roomplan version: %s\n", Version)
	app.ApplyOptions(opts)

	switch {
	case opts.RenderOnly:
		return app.RunRender()
	case opts.HTTPMode || opts.MQTTMode:
		return app.RunService()
	}

	fmt.Fprintln(out, "Use --render to write the floor plan as SVG/PNG/GeoJSON and exit")
	fmt.Fprintln(out, "Use --http to run the HTTP design service")
	fmt.Fprintln(out, "Use --mqtt to publish layouts to MQTT")
	fmt.Fprintln(out, "Use --http --mqtt to run both together")
	fmt.Fprintln(out, "\nConfiguration:")
	fmt.Fprintln(out, "  config.yaml - room, canvas, HTTP, MQTT and designer settings")
	fmt.Fprintln(out, "  .env        - GEMINI_API_KEY and MQTT_* overrides")
	return nil
}

func main() {
	args := os.Args[1:]
	envFile := envFileFromArgs(args)
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading %s: %v\n", envFile, err)
	}

	if err := run(args, os.Stdout, NewApp()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// envFileFromArgs finds --env-file before flags are parsed, since the
// environment must be loaded before the config reads it
func envFileFromArgs(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if name != "env-file" || !strings.HasPrefix(a, "-") {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ".env"
}
