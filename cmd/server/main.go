package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/staticrouter/internal/cfg"
	"github.com/keithlinneman/staticrouter/internal/content"
	"github.com/keithlinneman/staticrouter/internal/health"
	"github.com/keithlinneman/staticrouter/internal/httpmw"
	"github.com/keithlinneman/staticrouter/internal/markdown"
	"github.com/keithlinneman/staticrouter/internal/opshttp"
	"github.com/keithlinneman/staticrouter/internal/ratelimit"
	"github.com/keithlinneman/staticrouter/internal/sitehttp"
	"github.com/keithlinneman/staticrouter/internal/staticrouter"
	"github.com/keithlinneman/staticrouter/internal/templates"
	"github.com/keithlinneman/staticrouter/internal/webassets"

	"github.com/keithlinneman/staticrouter/internal/httpserver"
	"github.com/keithlinneman/staticrouter/internal/log"
	"github.com/keithlinneman/staticrouter/internal/metrics"
	"github.com/keithlinneman/staticrouter/internal/otelx"
	"github.com/keithlinneman/staticrouter/internal/prof"
	v "github.com/keithlinneman/staticrouter/internal/version"
)

const (
	appName = "staticrouter"
	// time for load balancers to see the failing readiness probe
	drainPeriod = 15 * time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool
	var envFile string

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.StringVar(&envFile, "env-file", ".env", "dotenv file to read before the environment")
	flag.Parse()

	if showVersion {
		fmt.Println(appName, vi.String())
		os.Exit(0)
	}

	if err := cfg.LoadDotEnv(envFile); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})
	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:             appName,
		Version:         vi.Version,
		Level:           lvl,
		StacktraceLevel: stackLvl,
		JSON:            conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"content_dir", conf.ContentDir,
		"content_s3_bucket", conf.ContentS3Bucket,
		"content_s3_prefix", conf.ContentS3Prefix,
		"content_ssm_param", conf.ContentSSMParam,
		"templates_dir", conf.TemplatesDir,
		"default_template", conf.DefaultTemplate,
		"renderer", conf.Renderer,
		"trusted_hops", conf.TrustedHops,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(appName, "server", &vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       appName,
		ServerAddress: conf.PyroServer,
		AuthToken:     conf.PyroAuthToken,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  conf.OTLPInsecure,
		Sample:    conf.TraceSample,
		Service:   appName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	loader, source, err := newLoader(ctx, conf, L)
	if err != nil {
		L.Error(ctx, err, "failed to configure content loader")
		os.Exit(1)
	}
	m.SetContentSource(source)

	// pages load once; a bad document aborts startup rather than serving a partial site
	rt, err := staticrouter.New(ctx, loader,
		staticrouter.WithTemplates(newTemplates(ctx, conf.TemplatesDir, L)),
		staticrouter.WithDefaultTemplate(conf.DefaultTemplate),
		staticrouter.WithLogger(L),
		staticrouter.WithMetrics(m),
	)
	if err != nil {
		L.Error(ctx, err, "failed to build page router", "source", source)
		os.Exit(1)
	}
	L.Info(ctx, "serving pages",
		"source", source,
		"pages", rt.Len(),
		"content_version", rt.ContentVersion(),
		"content_hash", rt.ContentHash(),
		"loaded_at", rt.LoadedAt(),
	)

	var gate health.ShutdownGate
	readiness := health.All(gate.Probe(), health.MinPages(rt, 1))

	var rateLimitMW func(http.Handler) http.Handler
	if conf.RateLimitRPS > 0 {
		limiter := ratelimit.New(ctx,
			ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
			ratelimit.WithOnDenied(func(string) { m.IncRateLimitDenied() }),
			// logged once per visitor until it is evicted
			ratelimit.WithOnFirstDenied(func(ip string) {
				L.Warn(ctx, "rate limit triggered", "ip", ip)
			}),
			ratelimit.WithOnCapacity(func() {
				m.IncRateLimitCapacity()
				L.Warn(ctx, "rate limit capacity reached, new visitors share the overflow bucket")
			}),
		)
		rateLimitMW = limiter.Middleware
	}

	site := sitehttp.New(rt, markdown.ChromaCSS(conf.HighlightStyle))
	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		Routes:       site.RegisterRoutes,
		NotFound:     rt,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  rateLimitMW,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		ContentInfo:  rt,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener: metrics, probes and pprof, never exposed publicly
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	stop()
	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	gate.Set("draining")
	L.Info(bg, "shutdown gate closed, draining", "period", drainPeriod.String())
	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainPeriod):
		L.Info(bg, "drain period complete")
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}
	stopProf()

	L.Info(bg, "shutdown complete")
}

// newLoader picks S3 when a bucket is configured and the content directory
// otherwise. With an SSM parameter the S3 prefix gains the release it names.
// The returned source names it for metrics.
func newLoader(ctx context.Context, conf cfg.App, L log.Logger) (content.ContentLoader, string, error) {
	renderer, _ := markdown.ByName(conf.Renderer)
	opts := markdown.DefaultOptions()
	opts.HighlightStyle = conf.HighlightStyle
	loaderOpts := []content.Option{
		content.WithRenderer(renderer),
		content.WithRenderOptions(opts),
		content.WithLogger(L),
	}

	if !conf.UsesS3() {
		return content.NewStaticLoader(conf.ContentDir, loaderOpts...), "dir", nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("load aws config: %w", err)
	}
	prefix := conf.ContentS3Prefix
	if conf.ContentSSMParam != "" {
		prefix, err = content.ReleasePrefix(ctx, ssm.NewFromConfig(awsCfg), conf.ContentSSMParam, prefix)
		if err != nil {
			return nil, "", err
		}
		L.Info(ctx, "content release resolved", "ssm_param", conf.ContentSSMParam, "content_s3_prefix", prefix)
	}
	l, err := content.NewS3Loader(s3.NewFromConfig(awsCfg), conf.ContentS3Bucket, prefix, loaderOpts...)
	if err != nil {
		return nil, "", err
	}
	return l, "s3", nil
}

// newTemplates layers the configured directory over the built-in templates.
// A missing directory leaves only the built-ins.
func newTemplates(ctx context.Context, dir string, L log.Logger) *templates.Engine {
	if dir == "" {
		return templates.New(nil, webassets.TemplatesFS())
	}
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		L.Warn(ctx, "templates directory unavailable, using built-in templates", "templates_dir", dir)
		return templates.New(nil, webassets.TemplatesFS())
	}
	return templates.New(os.DirFS(dir), webassets.TemplatesFS())
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	_, _ = conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
