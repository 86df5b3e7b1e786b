package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/kwv/roomplan/logger"
	"github.com/kwv/roomplan/plan"
)

const (
	defaultConfigFile = "config.yaml"
	shutdownTimeout   = 5 * time.Second
)

// App encapsulates the application state and dependencies
type App struct {
	Config     *plan.Config
	Session    *plan.Session
	Designer   plan.Designer
	Renderer   *plan.VectorRenderer
	MQTTClient *plan.MQTTClient
	Publisher  *plan.Publisher
	Log        *logger.Logger

	opts AppOptions
}

// NewApp creates a new App instance
func NewApp() *App {
	return &App{Renderer: plan.NewVectorRenderer()}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.opts = opts
}

// loadConfig reads the config file. A missing default config.yaml falls back
// to built-in defaults; an explicitly named file must exist.
func (a *App) loadConfig() (*plan.Config, error) {
	path := a.opts.ConfigFile
	if path == "" {
		path = defaultConfigFile
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == defaultConfigFile {
		cfg := plan.DefaultConfig()
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	return plan.LoadConfig(path)
}

// setup loads configuration, logging, the session and the initial layout
func (a *App) setup() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.opts.HTTPPort > 0 {
		cfg.HTTP.Port = a.opts.HTTPPort
	}
	if a.opts.LogLevel != "" {
		cfg.Log.Level = a.opts.LogLevel
	}
	a.Config = cfg

	a.Log = logger.Get(cfg.Log.Level)
	a.Log.SetLevel(cfg.Log.Level)
	plan.SetLogger(a.Log.Named("plan"))

	room := cfg.Room
	var items []plan.FurnitureItem
	if a.opts.LayoutFile != "" {
		layout, err := plan.LoadLayout(a.opts.LayoutFile, room)
		if err != nil {
			return fmt.Errorf("load layout: %w", err)
		}
		if layout.Room != nil {
			room = *layout.Room
		}
		items = layout.Furniture
		a.Log.Infow("loaded layout", "path", a.opts.LayoutFile, "items", len(items))
	}

	session, err := plan.NewSession(room, cfg.Canvas)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if len(items) > 0 {
		if err := session.ReplaceFurniture(items); err != nil {
			return fmt.Errorf("apply layout: %w", err)
		}
	}
	a.Session = session

	a.Designer = newDesigner(cfg.Designer)
	if cfg.Designer.APIKey == "" {
		a.Log.Warnw("no GEMINI_API_KEY configured; visualization requests will fail")
	}
	return nil
}

func newDesigner(cfg plan.DesignerConfig) *plan.GeminiClient {
	opts := []plan.GeminiOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, plan.WithBaseURL(cfg.BaseURL))
	}
	if cfg.ImageModel != "" {
		opts = append(opts, plan.WithImageModel(cfg.ImageModel))
	}
	if cfg.AdviceModel != "" {
		opts = append(opts, plan.WithAdviceModel(cfg.AdviceModel))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, plan.WithTimeout(cfg.Timeout))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, plan.WithMaxRetries(cfg.MaxRetries))
	}
	return plan.NewGeminiClient(cfg.APIKey, opts...)
}

// RunRender writes the floor plan in the requested formats and exits
func (a *App) RunRender() error {
	if err := a.setup(); err != nil {
		return err
	}

	scene, err := a.Session.Render()
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	base := a.opts.OutputFile
	if base == "" {
		base = "plan"
	}

	format := strings.ToLower(a.opts.Format)
	writeSVG := format == "svg" || format == "both" || format == "all"
	writePNG := format == "png" || format == "both" || format == "all"
	writeGeoJSON := format == "geojson" || format == "all"
	if !writeSVG && !writePNG && !writeGeoJSON {
		return fmt.Errorf("unknown format %q (want svg, png, geojson, both or all)", a.opts.Format)
	}

	if writeSVG {
		if err := a.writeFile(base+".svg", func(buf *bytes.Buffer) error {
			return a.Renderer.RenderSVG(buf, scene)
		}); err != nil {
			return err
		}
	}
	if writePNG {
		if err := a.writeFile(base+".png", func(buf *bytes.Buffer) error {
			return a.Renderer.RenderPNG(buf, scene)
		}); err != nil {
			return err
		}
	}
	if writeGeoJSON {
		snap := a.Session.Snapshot()
		if err := a.writeFile(base+".geojson", func(buf *bytes.Buffer) error {
			data, err := plan.LayoutGeoJSON(snap.Config, snap.Furniture).MarshalJSON()
			if err != nil {
				return err
			}
			_, err = buf.Write(data)
			return err
		}); err != nil {
			return err
		}
	}
	if a.opts.ThumbSize > 0 {
		if err := a.writeFile(base+"-thumb.png", func(buf *bytes.Buffer) error {
			return a.Renderer.RenderThumbnail(buf, scene, a.opts.ThumbSize)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) writeFile(path string, render func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	a.Log.Infow("wrote file", "path", path, "bytes", buf.Len())
	return nil
}

// RunService runs the HTTP and/or MQTT surfaces until interrupted
func (a *App) RunService() error {
	if err := a.setup(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.opts.MQTTMode {
		if err := a.startMQTT(); err != nil {
			return err
		}
		defer a.MQTTClient.Disconnect()
	}

	if a.opts.Watch && a.opts.LayoutFile != "" {
		watcher, err := plan.WatchLayout(a.opts.LayoutFile, a.Session)
		if err != nil {
			return fmt.Errorf("watch layout: %w", err)
		}
		defer func() { _ = watcher.Close() }()
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.opts.HTTPMode {
		gin.SetMode(gin.ReleaseMode)
		handler := NewHandler(a.Session, a.Designer, a.Renderer, a.Log.Named("http"))
		srv := &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.Config.HTTP.Port),
			Handler:           handler.InitRoutes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g.Go(func() error {
			a.Log.Infow("http server starting", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.Log.Infow("shutting down service")
		return nil
	})

	a.Log.Infow("service running", "http", a.opts.HTTPMode, "mqtt", a.opts.MQTTMode)
	return g.Wait()
}

// startMQTT connects to the broker, publishes every session change and
// applies commands from the command topic
func (a *App) startMQTT() error {
	client, err := plan.ConnectMQTT(a.Config.MQTT, func(cmd plan.Command) {
		if err := cmd.Apply(a.Session); err != nil {
			a.Log.Warnw("mqtt command failed", "action", cmd.Action, "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("connect mqtt: %w", err)
	}
	if client == nil {
		return fmt.Errorf("--mqtt given but no MQTT broker configured (mqtt.broker or MQTT_BROKER)")
	}
	a.MQTTClient = client

	a.Publisher = plan.NewPublisher(client.Client(), a.Config.MQTT.PublishPrefix)
	a.Session.SetPublisher(a.Publisher)
	a.Log.Infow("mqtt publisher initialized",
		"layout", a.Publisher.LayoutTopic(),
		"selection", a.Publisher.SelectionTopic(),
		"commands", client.CommandTopic(),
	)
	return nil
}
