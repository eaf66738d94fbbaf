// capvol 命令行：从行情快照剥离 caplet 波动率期限结构、按期限插值，或常驻刷新并暴露指标。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/wyfcoding/capvol/cache"
	"github.com/wyfcoding/capvol/config"
	"github.com/wyfcoding/capvol/logging"
	"github.com/wyfcoding/capvol/marketdata"
	"github.com/wyfcoding/capvol/metrics"
	"github.com/wyfcoding/capvol/stripping"
	"github.com/wyfcoding/capvol/tracing"
	"github.com/wyfcoding/capvol/volcurve"
	"github.com/wyfcoding/capvol/xerrors"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
)

var (
	loader *config.Loader
	cfg    *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(report(os.Stderr, err))
	}
}

// report 输出错误并返回退出码：输入或行情数据问题（4xx）为 2，其余为 1。
func report(w io.Writer, err error) int {
	xe, ok := xerrors.FromError(err)
	if !ok {
		fmt.Fprintln(w, err)
		return 1
	}

	st := xe.ToGRPCStatus()
	fmt.Fprintf(w, "%v (code=%d grpc=%s http=%d)\n", err, xe.Code, st.Code(), xe.HTTPStatus())
	if xe.HTTPStatus() < http.StatusInternalServerError {
		return 2
	}
	return 1
}

var rootCmd = &cobra.Command{
	Use:           "capvol",
	Short:         "Caplet volatility stripping from cap price term structures",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		loader = config.NewLoader()

		var err error
		if cfg, err = loader.Load(configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Log.Level = lvl
		}
		logging.InitLogger(cfg.Log)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (TOML)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(stripCmd)
	rootCmd.AddCommand(interpCmd)
	rootCmd.AddCommand(serveCmd)
}

// newService 按当前配置组装缓存、指标、追踪与剥离服务，返回的 cleanup 负责释放资源。
func newService(ctx context.Context) (*stripping.Service, *metrics.Metrics, func(), error) {
	var (
		opts     []stripping.Option
		cleanups []func()
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	opts = append(opts, stripping.WithLogger(logging.Default()))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics(cfg.Log.Service)
		m.RegisterBuildInfo(cfg.Log.Service, version)
		opts = append(opts, stripping.WithMetrics(m))
	}

	if cfg.Cache.Enabled {
		c, err := cache.NewBigCache(ctx, cache.Options{
			TTL:              cfg.Cache.TTL,
			Shards:           cfg.Cache.Shards,
			HardMaxCacheSize: cfg.Cache.HardMaxCacheSizeMB,
		})
		if err != nil {
			return nil, nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = c.Close() })
		opts = append(opts, stripping.WithCache(c))
	}

	if cfg.Tracing.Enabled {
		var exporters []sdktrace.SpanExporter
		exp, err := tracing.NewOTLPExporter(ctx, cfg.Tracing)
		if err != nil {
			return nil, nil, cleanup, err
		}
		if exp != nil {
			exporters = append(exporters, exp)
		}
		shutdown, err := tracing.InitTracer(cfg.Tracing, exporters...)
		if err != nil {
			return nil, nil, cleanup, err
		}
		cleanups = append(cleanups, func() { _ = shutdown(context.Background()) })
	}

	svc, err := stripping.NewService(cfg, opts...)
	if err != nil {
		return nil, nil, cleanup, err
	}
	return svc, m, cleanup, nil
}

func loadSnapshots(paths []string) ([]*marketdata.Snapshot, error) {
	snaps := make([]*marketdata.Snapshot, 0, len(paths))
	for _, p := range paths {
		s, err := marketdata.Load(p)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("capvol %s (commit %s, config %s)\n", version, commit, cfg.Version)
	},
}

// --- Strip Command ---

var stripCmd = &cobra.Command{
	Use:   "strip [snapshot.json...]",
	Short: "Strip caplet Black and Normal vols from one or more snapshots",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		snaps, err := loadSnapshots(args)
		if err != nil {
			return err
		}

		svc, _, cleanup, err := newService(ctx)
		defer cleanup()
		if err != nil {
			return err
		}

		results, err := svc.StripAll(ctx, snaps)
		if err != nil {
			return err
		}
		return writeJSON(results)
	},
}

// --- Interp Command ---

type interpPoint struct {
	Tenor float64 `json:"tenor"`
	Vol   float64 `json:"vol"`
}

var interpCmd = &cobra.Command{
	Use:   "interp [snapshot.json]",
	Short: "Query stripped caplet vols at arbitrary tenors",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		tenors, _ := cmd.Flags().GetFloat64Slice("tenor")
		vtFlag, _ := cmd.Flags().GetString("vol-type")

		vt, err := volcurve.ParseVolType(vtFlag)
		if err != nil {
			return err
		}
		snap, err := marketdata.Load(args[0])
		if err != nil {
			return err
		}

		svc, _, cleanup, err := newService(ctx)
		defer cleanup()
		if err != nil {
			return err
		}

		c, err := svc.Curve(ctx, snap)
		if err != nil {
			return err
		}
		points := make([]interpPoint, 0, len(tenors))
		for _, t := range tenors {
			v, err := c.Interp(t, vt)
			if err != nil {
				return err
			}
			points = append(points, interpPoint{Tenor: t, Vol: v})
		}
		return writeJSON(points)
	},
}

func init() {
	interpCmd.Flags().Float64Slice("tenor", []float64{1}, "tenor(s) in years to query")
	interpCmd.Flags().String("vol-type", string(volcurve.VolBlack), "vol type: black or normal")
}

// --- Serve Command ---

var serveCmd = &cobra.Command{
	Use:   "serve [snapshot.json...]",
	Short: "Periodically re-strip snapshots, expose metrics and hot-reload config",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			return fmt.Errorf("--interval must be positive, got %s", interval)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		svc, m, cleanup, err := newService(ctx)
		defer cleanup()
		if err != nil {
			return err
		}

		if m != nil {
			shutdown := m.ExposeHttp(cfg.Metrics.Addr, cfg.Metrics.Path)
			defer shutdown()
		}

		loader.RegisterReloadHook(func(c *config.Config) {
			if err := svc.Apply(c); err != nil {
				logging.Error(ctx, "apply reloaded config failed", "error", err)
			}
		})
		loader.Watch()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			// 每轮重新读取快照文件，行情更新后无需重启。
			if snaps, err := loadSnapshots(args); err != nil {
				logging.Error(ctx, "load snapshots failed", "error", err)
			} else if _, err := svc.StripAll(ctx, snaps); err != nil {
				logging.Error(ctx, "strip round failed", "error", err)
			}

			select {
			case <-ctx.Done():
				logging.Info(context.Background(), "capvol serve stopping")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	serveCmd.Flags().Duration("interval", time.Minute, "re-strip interval")
}
