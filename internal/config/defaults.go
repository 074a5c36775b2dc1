package config

const (
	defaultMediaDir                  = "~/.local/share/vidpipe/media"
	defaultScratchDir                = "~/.local/share/vidpipe/scratch"
	defaultStateDir                  = "~/.local/share/vidpipe/state"
	defaultStoreDriver               = "sqlite"
	defaultPollIntervalSeconds       = 5
	defaultErrorRetryIntervalSeconds = 5
	defaultHeartbeatIntervalSeconds  = 15
	defaultHeartbeatTimeoutSeconds   = 600
	defaultTerminalWriteAttempts     = 5
	defaultStepTimeoutSeconds        = 3600
	defaultMinOutputBytes            = 128
	defaultJobTTLHours               = 7 * 24
	defaultFailedRetentionHours      = 30 * 24
	defaultSweepIntervalMinutes      = 24 * 60
	defaultScratchMaxAgeHours        = 48
	defaultFFmpegBinary              = "ffmpeg"
	defaultFFprobeBinary             = "ffprobe"
	defaultHLSSegmentSeconds         = 6
	defaultPosterWidth               = 1920
	defaultPosterHeight              = 1080
	defaultAPIBind                   = "127.0.0.1:7490"
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
)

var defaultAllowedExtensions = []string{"mp4", "mov", "mkv", "webm", "avi", "m4v"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			MediaDir:   defaultMediaDir,
			ScratchDir: defaultScratchDir,
			StateDir:   defaultStateDir,
		},
		Store: Store{
			Driver: defaultStoreDriver,
		},
		Workflow: Workflow{
			PollIntervalSeconds:       defaultPollIntervalSeconds,
			ErrorRetryIntervalSeconds: defaultErrorRetryIntervalSeconds,
			HeartbeatIntervalSeconds:  defaultHeartbeatIntervalSeconds,
			HeartbeatTimeoutSeconds:   defaultHeartbeatTimeoutSeconds,
			TerminalWriteAttempts:     defaultTerminalWriteAttempts,
		},
		Pipeline: Pipeline{
			StepTimeoutSeconds: defaultStepTimeoutSeconds,
			MinOutputBytes:     defaultMinOutputBytes,
			AllowedExtensions:  append([]string(nil), defaultAllowedExtensions...),
		},
		Retention: Retention{
			JobTTLHours:          defaultJobTTLHours,
			FailedRetentionHours: defaultFailedRetentionHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
			ScratchMaxAgeHours:   defaultScratchMaxAgeHours,
		},
		Transcoder: Transcoder{
			FFmpegBinary:      defaultFFmpegBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			HLSSegmentSeconds: defaultHLSSegmentSeconds,
			PosterWidth:       defaultPosterWidth,
			PosterHeight:      defaultPosterHeight,
		},
		API: API{
			Bind: defaultAPIBind,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
