package cfg

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/keithlinneman/staticrouter/internal/log"
	"github.com/keithlinneman/staticrouter/internal/markdown"
	"github.com/keithlinneman/staticrouter/internal/pathutil"
)

// EnvPrefix is prepended to upper-cased flag names when reading the environment.
const EnvPrefix = "STATICROUTER_"

type App struct {
	LogJSON         bool
	LogLevel        string
	StacktraceLevel string
	HTTPPort        int
	AdminPort       int
	EnablePprof     bool

	EnableTracing   bool
	OTLPEndpoint    string
	OTLPInsecure    bool
	TraceSample     float64
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string
	PyroAuthToken   string

	ContentDir      string
	ContentS3Bucket string
	ContentS3Prefix string
	ContentSSMParam string
	TemplatesDir    string
	DefaultTemplate string
	Renderer        string
	HighlightStyle  string

	RateLimitRPS   float64
	RateLimitBurst int
	TrustedHops    int
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 8080, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.BoolVar(&c.OTLPInsecure, "otlp-insecure", true, "Use plaintext gRPC to the OTLP endpoint")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.PyroAuthToken, "pyro-auth-token", "", "basic auth password for pyro-server")

	fs.StringVar(&c.ContentDir, "content-dir", "content", "directory of markdown pages (ignored when content-s3-bucket is set)")
	fs.StringVar(&c.ContentS3Bucket, "content-s3-bucket", "", "s3 bucket to load markdown pages from")
	fs.StringVar(&c.ContentS3Prefix, "content-s3-prefix", "", "s3 key prefix of the markdown pages")
	fs.StringVar(&c.ContentSSMParam, "content-ssm-param", "", "ssm parameter naming the content release appended to content-s3-prefix")
	fs.StringVar(&c.TemplatesDir, "templates-dir", "templates", "directory of page templates (built-in templates fill gaps)")
	fs.StringVar(&c.DefaultTemplate, "default-template", "default", "template for pages without a template key")
	fs.StringVar(&c.Renderer, "renderer", "gomarkdown", "markdown renderer: gomarkdown|goldmark")
	fs.StringVar(&c.HighlightStyle, "highlight-style", markdown.DefaultHighlightStyle, "chroma style for code blocks")

	fs.Float64Var(&c.RateLimitRPS, "ratelimit-rps", 10, "per-client request rate (0 disables)")
	fs.IntVar(&c.RateLimitBurst, "ratelimit-burst", 30, "per-client burst size")
	fs.IntVar(&c.TrustedHops, "trusted-hops", 0, "X-Forwarded-For entries added by trusted proxies (0 ignores the header)")
}

// LoadDotEnv exports variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				logf("flag -%s: cli value %q overrides env %s", f.Name, f.Value.String(), key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s=%q: %v", f.Name, key, envVal, err)
			}
		}
	})
}

// UsesS3 reports whether pages come from S3 rather than ContentDir.
func (c App) UsesS3() bool { return c.ContentS3Bucket != "" }

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}
	// grpc exporter wants host:port, no scheme
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	if c.UsesS3() {
		if pathutil.HasDotSegments(c.ContentS3Prefix) {
			errs = append(errs, fmt.Errorf("CONTENT_S3_PREFIX must not contain . or .. segments (got %q)", c.ContentS3Prefix))
		}
	} else if strings.TrimSpace(c.ContentDir) == "" {
		errs = append(errs, fmt.Errorf("CONTENT_DIR is required when CONTENT_S3_BUCKET is empty"))
	}
	if c.ContentSSMParam != "" && !c.UsesS3() {
		errs = append(errs, fmt.Errorf("CONTENT_SSM_PARAM requires CONTENT_S3_BUCKET"))
	}
	if strings.TrimSpace(c.DefaultTemplate) == "" {
		errs = append(errs, fmt.Errorf("DEFAULT_TEMPLATE must not be empty"))
	}
	if _, ok := markdown.ByName(c.Renderer); !ok {
		errs = append(errs, fmt.Errorf("invalid RENDERER %q (must be gomarkdown|goldmark)", c.Renderer))
	}

	if c.RateLimitRPS < 0 {
		errs = append(errs, fmt.Errorf("invalid RATELIMIT_RPS %.2f (must be >= 0)", c.RateLimitRPS))
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		errs = append(errs, fmt.Errorf("invalid RATELIMIT_BURST %d (must be >= 1)", c.RateLimitBurst))
	}
	if c.TrustedHops < 0 || c.TrustedHops > 10 {
		errs = append(errs, fmt.Errorf("invalid TRUSTED_HOPS %d (must be 0..10)", c.TrustedHops))
	}

	return errors.Join(errs...)
}
