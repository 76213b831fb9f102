// gateway — OpenAI-compatible local inference gateway
//
// Usage:
//
//	gateway serve
//	gateway serve --host 0.0.0.0 --port 8080 --model gemma-3-1b-it
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/otronforge/gateway/internal/chat"
	"github.com/otronforge/gateway/internal/chatmodel"
	"github.com/otronforge/gateway/internal/config"
	"github.com/otronforge/gateway/internal/cpu"
	"github.com/otronforge/gateway/internal/embeddings"
	"github.com/otronforge/gateway/internal/gateway"
	"github.com/otronforge/gateway/internal/metrics"
	"github.com/otronforge/gateway/internal/proxy"
	"github.com/otronforge/gateway/internal/weights"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const banner = `
  ___   _____ _____ ___   _  _   ___  ___ ___ ___
 / _ \ |_   _| _ \ _ \ \ | | | | | _ \/ _ \_ _/ __|
| (_) |  | | |   /  _/  \| | |_| |  _/ (_) | |\__ \
 \___/   |_| |_|_\_| |_|\_|\__/|_| \___/___|___/

  gateway — OpenAI-compatible local inference
`

// serveOptions collects every serve flag; runServe takes one of these
// instead of a long parameter list.
type serveOptions struct {
	host          string
	port          uint16
	mode          string
	configPath    string
	defaultModel  string
	forceCPU      bool
	dtypeOverride string
	cacheDir      string
}

func main() {
	var opts serveOptions

	root := &cobra.Command{
		Use:   "gateway",
		Short: "gateway — OpenAI-compatible local inference gateway",
		Long:  banner,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	f := serve.Flags()
	f.StringVar(&opts.host, "host", "", "Bind address (overrides SERVER_HOST / SERVER_CONFIG)")
	f.Uint16Var(&opts.port, "port", 0, "HTTP port (overrides SERVER_PORT / SERVER_CONFIG)")
	f.StringVar(&opts.mode, "mode", "", "Standalone or HighAvailability (overrides SERVER_CONFIG)")
	f.StringVar(&opts.configPath, "config", "", "Path to a SERVER_CONFIG JSON file on disk")
	f.StringVarP(&opts.defaultModel, "model", "m", "", "Default chat model id substituted when a request omits \"model\"")
	f.BoolVar(&opts.forceCPU, "force-cpu", false, "Force CPU execution, bypassing GPU device selection")
	f.StringVar(&opts.dtypeOverride, "dtype", "", "Override numeric precision (f16, bf16, f32)")
	f.StringVar(&opts.cacheDir, "cache-dir", "", "Hugging Face Hub-style weight cache directory (defaults to HF_HOME/hub)")

	root.AddCommand(serve)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(opts serveOptions) error {
	fmt.Print(banner)

	cfg := loadConfig(opts.configPath)
	if opts.host != "" {
		cfg.ServerHost = opts.host
	}
	if opts.port != 0 {
		cfg.ServerPort = opts.port
	}
	if opts.mode != "" {
		cfg.ServerMode = config.Mode(opts.mode)
	}
	if opts.defaultModel != "" {
		cfg.DefaultModel = opts.defaultModel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	topo, err := cpu.Detect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: CPU detection error: %v\n", err)
	} else {
		fmt.Printf("CPU:   %s\n", topo.ModelName)
		fmt.Printf("Cores: %d physical / %d logical\n", topo.PhysicalCores, topo.LogicalCores)
		fmt.Printf("SIMD:  %s\n\n", cpu.FeatureSummary(topo))
	}
	fmt.Printf("Mode:  %s\n", cfg.ServerMode)

	mc := metrics.NewCollector()

	var srv *gateway.Server
	if cfg.ServerMode == config.HighAvailability {
		p := proxy.New(cfg)
		srv = gateway.NewProxied(cfg, p, mc)
	} else {
		resolver := weights.NewResolver(opts.cacheDir)
		modelOpts := chatmodel.Options{ForceCPU: opts.forceCPU, DTypeOverride: opts.dtypeOverride}
		chatSvc := chat.NewService(resolver, mc, cfg.DefaultModel, modelOpts)
		embedSvc := embeddings.NewEngine(resolver)

		warmStartup(chatSvc, embedSvc, cfg.DefaultModel)

		srv = gateway.New(cfg, chatSvc, embedSvc, mc)
	}

	return srv.Run(cfg.Addr())
}

// warmStartup loads the configured default chat model and the project's
// default embedding model concurrently, so the first real request to
// either endpoint doesn't pay the resolve/decode cost. Errors are
// logged, not fatal: a failed warm-up just means the first real request
// pays the cost instead and surfaces the same error there.
func warmStartup(chatSvc *chat.Service, embedSvc *embeddings.Engine, defaultModel string) {
	var g errgroup.Group
	g.Go(func() error { return chatSvc.Warm(defaultModel) })
	g.Go(func() error { return embedSvc.Warm("nomic-embed-text-v1.5") })
	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: startup warm-up incomplete: %v\n", err)
	}
}

func loadConfig(path string) config.Config {
	if path == "" {
		return config.FromEnv()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot read --config %s (%v), falling back to env\n", path, err)
		return config.FromEnv()
	}
	cfg := config.Default()
	if err := json.Unmarshal(data, &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: cannot parse --config %s (%v), falling back to env\n", path, err)
		return config.FromEnv()
	}
	return cfg
}
