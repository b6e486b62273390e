package config

const (
	defaultInputDir         = "~/audio"
	defaultOutputDir        = "~/audio-stems"
	defaultTempDirName      = ".stemsep-tmp"
	defaultLogDir           = "~/.local/share/stemsep/logs"
	defaultBinary           = "python3"
	defaultBatchSize        = 5
	defaultOutputFormat     = OutputFormatMP3
	defaultMP3Bitrate       = 320
	defaultDevice           = DeviceAuto
	defaultProgressBackend  = ProgressBackendJSON
	defaultStaleAfterHours  = 24
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogMaxSizeMB     = 50
	defaultLogMaxBackups    = 5
	defaultLogMaxAgeDays    = 30
	maxMP3Bitrate           = 320
	defaultNtfyTimeout      = 10
	defaultFourStemModel    = "htdemucs_ft"
	defaultSixStemModel     = "htdemucs_6s"
	defaultProbeTorchScript = "import torch; print('cuda' if torch.cuda.is_available() else 'mps' if torch.backends.mps.is_available() else 'cpu')"
)

// Output formats accepted by the separator. They map to mutually exclusive flags.
const (
	OutputFormatMP3     = "mp3"
	OutputFormatWAV     = "wav"
	OutputFormatFloat32 = "float32"
	OutputFormatInt24   = "int24"
)

// Device values for the separator accelerator.
const (
	DeviceAuto = "auto"
	DeviceNone = "none"
	DeviceCPU  = "cpu"
	DeviceCUDA = "cuda"
	DeviceMPS  = "mps"
)

// Progress persistence backends.
const (
	ProgressBackendJSON   = "json"
	ProgressBackendSQLite = "sqlite"
)

// DefaultModels returns the two checkpoints used for a full six-stem split.
func DefaultModels() []Model {
	return []Model{
		{Name: defaultFourStemModel, Stems: []string{"bass", "drums", "vocals"}},
		{Name: defaultSixStemModel, Stems: []string{"other", "guitar", "piano"}},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Separation: Separation{
			Binary:       defaultBinary,
			Args:         []string{"-m", "demucs.separate"},
			BatchSize:    defaultBatchSize,
			OutputFormat: defaultOutputFormat,
			MP3Bitrate:   defaultMP3Bitrate,
			Device:       defaultDevice,
			ProbeCommand: []string{defaultBinary, "-c", defaultProbeTorchScript},
			Models:       DefaultModels(),
		},
		Progress: Progress{
			Backend: defaultProgressBackend,
		},
		Staging: Staging{
			StaleAfterHours: defaultStaleAfterHours,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			File:       true,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
	}
}
