// Package config loads CLI settings from flags, an optional YAML file and
// PROVMAP_* environment variables through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"provmap/internal/cleanup"
	"provmap/internal/logger"
	"provmap/internal/pipeline"
	"provmap/internal/segment"
	"provmap/internal/vectorize"
	"provmap/pkg/colorutil"
)

// EnvPrefix prefixes environment overrides, e.g. PROVMAP_CONVERT_MIN_AREA.
const EnvPrefix = "PROVMAP"

// Settings is the full configuration tree.
type Settings struct {
	Log      logger.Config    `mapstructure:"log"`
	Convert  ConvertSettings  `mapstructure:"convert"`
	GameData GameDataSettings `mapstructure:"gamedata"`
	Tooltip  TooltipSettings  `mapstructure:"tooltip"`
	Verify   VerifySettings   `mapstructure:"verify"`
}

// ConvertSettings configures the convert command.
type ConvertSettings struct {
	OutDir        string  `mapstructure:"outdir"`
	Background    string  `mapstructure:"bg"`
	Simplify      float64 `mapstructure:"simplify"`
	Tolerance     int     `mapstructure:"tolerance"`
	MinArea       int     `mapstructure:"min_area"`
	Mapping       string  `mapstructure:"mapping"`
	MakeHTML      bool    `mapstructure:"make_html"`
	Title         string  `mapstructure:"title"`
	Metric        string  `mapstructure:"metric"`
	Connectivity  int     `mapstructure:"connectivity"`
	Supersample   int     `mapstructure:"supersample"`
	Denoise       int     `mapstructure:"denoise"`
	DenoiseKernel int     `mapstructure:"denoise_kernel"`
	Tracer        string  `mapstructure:"tracer"`
	SkipSea       bool    `mapstructure:"skip_sea"`
	MappedOnly    bool    `mapstructure:"mapped_only"`
	Preview       bool    `mapstructure:"preview"`
	MetricsFile   string  `mapstructure:"metrics_file"`
}

// GameDataSettings configures the gamedata command.
type GameDataSettings struct {
	Manifest string `mapstructure:"manifest"`
	OutDir   string `mapstructure:"outdir"`
}

// TooltipSettings configures the tooltip command.
type TooltipSettings struct {
	DataDir string `mapstructure:"data_dir"`
	Culture string `mapstructure:"culture"`
}

// VerifySettings configures the verify command.
type VerifySettings struct {
	OutDir string `mapstructure:"outdir"`
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	Defaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Defaults registers the default value of every key.
func Defaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("convert.outdir", "docs")
	v.SetDefault("convert.bg", "0,0,0,0")
	v.SetDefault("convert.simplify", 0.3)
	v.SetDefault("convert.tolerance", 1)
	v.SetDefault("convert.min_area", 80)
	v.SetDefault("convert.mapping", "")
	v.SetDefault("convert.make_html", false)
	v.SetDefault("convert.title", "Provinces")
	v.SetDefault("convert.metric", string(colorutil.MetricMax))
	v.SetDefault("convert.connectivity", 8)
	v.SetDefault("convert.supersample", 1)
	v.SetDefault("convert.denoise", 0)
	v.SetDefault("convert.denoise_kernel", 3)
	v.SetDefault("convert.tracer", string(vectorize.TracerCrack))
	v.SetDefault("convert.skip_sea", false)
	v.SetDefault("convert.mapped_only", false)
	v.SetDefault("convert.preview", false)
	v.SetDefault("convert.metrics_file", "")

	v.SetDefault("gamedata.manifest", "")
	v.SetDefault("gamedata.outdir", "docs")

	v.SetDefault("tooltip.data_dir", "docs")
	v.SetDefault("tooltip.culture", "")

	v.SetDefault("verify.outdir", "docs")
}

// BindFlags binds every flag of fs to the key section.<flag>, with dashes
// in flag names mapped to underscores.
func BindFlags(v *viper.Viper, section string, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		err = v.BindPFlag(section+"."+strings.ReplaceAll(f.Name, "-", "_"), f)
	})
	return err
}

// Load reads the optional config file and decodes the settings.
func Load(v *viper.Viper, file string) (*Settings, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return s, nil
}

// Validate checks values that do not depend on the command being run.
func (s *Settings) Validate() error {
	if _, err := logger.ParseLevel(s.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(s.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", s.Log.Format)
	}
	return nil
}

// PipelineOptions converts convert settings into validated pipeline options.
func (c ConvertSettings) PipelineOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	bg, err := colorutil.ParseRGBA(c.Background)
	if err != nil {
		return opts, fmt.Errorf("invalid --bg: %w", err)
	}
	metric, err := colorutil.ParseMetric(c.Metric)
	if err != nil {
		return opts, err
	}
	conn, err := segment.ParseConnectivity(c.Connectivity)
	if err != nil {
		return opts, err
	}
	tracer, err := vectorize.ParseTracer(c.Tracer)
	if err != nil {
		return opts, err
	}

	opts.OutDir = c.OutDir
	opts.Segment = segment.Options{
		Tolerance:         c.Tolerance,
		Metric:            metric,
		Connectivity:      conn,
		Background:        bg,
		ExcludeBackground: true,
	}
	opts.Cleanup = cleanup.Options{KernelSize: c.DenoiseKernel, Iterations: c.Denoise}
	opts.Vectorize = vectorize.Options{
		Simplify:     c.Simplify,
		MinArea:      c.MinArea,
		Connectivity: conn,
		Tracer:       tracer,
		Scale:        1,
	}
	opts.Supersample = c.Supersample
	opts.SkipSea = c.SkipSea
	opts.MappedOnly = c.MappedOnly
	opts.MakeHTML = c.MakeHTML
	opts.Title = c.Title
	opts.Preview = c.Preview
	opts.MetricsFile = c.MetricsFile

	if err := opts.Validate(); err != nil {
		return opts, err
	}
	return opts, nil
}
