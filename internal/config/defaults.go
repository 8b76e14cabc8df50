package config

const (
	defaultDataDir          = "~/.local/share/aecvision/data"
	defaultStateDir         = "~/.local/share/aecvision/state"
	defaultLogDir           = "~/.local/share/aecvision/logs"
	defaultDetailsURL       = "https://www.cfm.va.gov/til/sdetail.asp"
	defaultSpecsURL         = "https://www.cfm.va.gov/til/spec.asp"
	defaultSourceBaseURL    = "https://www.cfm.va.gov"
	defaultUserAgent        = "aecvision/dev"
	defaultRequestTimeout   = 60
	defaultDownloadWorkers  = 4
	defaultPdftoppmBinary   = "pdftoppm"
	defaultDPI              = 150
	defaultReplicateBaseURL = "https://api.replicate.com/v1"
	defaultModel            = "yorickvp/llava-13b:80537f9eead1a5bfa72d5ac6ea6414379be41d4d4f6679fd776e9535d1eb58bb"
	defaultImageBaseURL     = "https://github.com/simondpalmer/AEC-DETAIL-vision/raw/main/data"
	defaultEnrichWorkers    = 4
	defaultEnrichTimeout    = 120
	defaultMaxTokens        = 1024
	defaultTemperature      = 0.1
	defaultTopP             = 1.0
	defaultBenignMarker     = "(some known issue)"
	defaultOutputPath       = "~/.local/share/aecvision/output.jsonl"
	defaultFormat           = FormatJSONL
	defaultImagePolicy      = ImagePolicyPerImage
	defaultFallbackSource   = FallbackLink
	defaultIDPrefix         = "construction"
	defaultUploadRevision   = "main"
	defaultUploadBaseURL    = "https://huggingface.co"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultNotifyTimeout    = 10
)

// Dataset output formats.
const (
	FormatJSONL = "jsonl"
	FormatJSON  = "json"
)

// Image policies select which linked records become dataset entries.
const (
	ImagePolicyPerImage   = "per_image"
	ImagePolicyFirstImage = "first_image"
)

// Fallback sources supply the assistant turn for records without a caption.
const (
	FallbackLink = "link"
	FallbackBody = "body"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Sources: Sources{
			DetailsURL:      defaultDetailsURL,
			SpecsURL:        defaultSpecsURL,
			BaseURL:         defaultSourceBaseURL,
			UserAgent:       defaultUserAgent,
			RequestTimeout:  defaultRequestTimeout,
			DownloadWorkers: defaultDownloadWorkers,
		},
		Conversion: Conversion{
			PdftoppmBinary: defaultPdftoppmBinary,
			DPI:            defaultDPI,
		},
		Enrichment: Enrichment{
			Enabled:        true,
			BaseURL:        defaultReplicateBaseURL,
			Model:          defaultModel,
			ImageBaseURL:   defaultImageBaseURL,
			Workers:        defaultEnrichWorkers,
			RequestTimeout: defaultEnrichTimeout,
			MaxTokens:      defaultMaxTokens,
			Temperature:    defaultTemperature,
			TopP:           defaultTopP,
			BenignMarkers:  []string{defaultBenignMarker},
			UseCache:       true,
		},
		Dataset: Dataset{
			OutputPath:     defaultOutputPath,
			Format:         defaultFormat,
			ImagePolicy:    defaultImagePolicy,
			FallbackSource: defaultFallbackSource,
			IDPrefix:       defaultIDPrefix,
		},
		Upload: Upload{
			Revision: defaultUploadRevision,
			BaseURL:  defaultUploadBaseURL,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			OnSuccess:      true,
		},
	}
}
