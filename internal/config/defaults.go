package config

const (
	defaultOutputDir          = "~/sfgproc/output"
	defaultStateDir           = "~/.local/share/sfgproc"
	defaultLogDir             = "~/.local/share/sfgproc/logs"
	defaultGridLength         = 853
	defaultDelimiter          = ","
	defaultEncoding           = "utf-8"
	defaultDespikeThreshold   = 200.0
	defaultDespikeWindow      = 7
	defaultBackgroundPolicy   = "error"
	defaultSmoothingSigma     = 5.0
	defaultTruncationFraction = 0.05
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"

	catalogFileName = "catalog.db"
	lockFileName    = "sfgproc.lock"
)

// Default returns a Config populated with repository defaults. The padding
// table covers the seven-detector acquisition layout; entries loaded from a
// config file override or extend it.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			StateDir:  defaultStateDir,
			LogDir:    defaultLogDir,
		},
		Grid: Grid{
			Length: defaultGridLength,
		},
		Loader: Loader{
			Delimiter: defaultDelimiter,
			Encoding:  defaultEncoding,
		},
		Despike: Despike{
			Threshold: defaultDespikeThreshold,
			Window:    defaultDespikeWindow,
		},
		Background: Background{
			Policy: defaultBackgroundPolicy,
		},
		Smoothing: Smoothing{
			Enabled: true,
			Sigma:   defaultSmoothingSigma,
		},
		Truncation: Truncation{
			Fraction: defaultTruncationFraction,
		},
		Padding: defaultPadding(),
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultPadding() map[string][]int {
	return map[string][]int{
		"det620": {0, 409},
		"det625": {58, 351},
		"det630": {116, 293},
		"det635": {174, 235},
		"det640": {232, 177},
		"det645": {291, 118},
		"det655": {409, 0},
	}
}
