package config

const (
	defaultConfigPath              = "~/.config/lofi/config.toml"
	defaultUploadDir               = "uploads"
	defaultConvertedDir            = "converted"
	homeUploadDir                  = "~/uploads"
	homeConvertedDir               = "~/converted"
	defaultStateDir                = "~/.local/share/lofi"
	defaultAPIBind                 = "127.0.0.1:48716"
	defaultAcceleration            = "auto"
	defaultFetchBinary             = "yt-dlp"
	defaultTranscodeBinary         = "ffmpeg"
	defaultTerminationGraceSeconds = 5
	defaultMaxUploadMB             = 2048
	defaultHistoryRetentionDays    = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir:    defaultUploadDir,
			ConvertedDir: defaultConvertedDir,
			StateDir:     defaultStateDir,
			APIBind:      defaultAPIBind,
		},
		Transcode: Transcode{
			Acceleration:            defaultAcceleration,
			FetchBinary:             defaultFetchBinary,
			TranscodeBinary:         defaultTranscodeBinary,
			TerminationGraceSeconds: defaultTerminationGraceSeconds,
		},
		Server: Server{
			MaxUploadMB:          defaultMaxUploadMB,
			HistoryRetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
