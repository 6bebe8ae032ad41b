package config

const (
	defaultStagingDir       = "~/.local/share/mixdown/staging"
	defaultOutputDir        = "~/mixdown-output"
	defaultLogDir           = "~/.local/share/mixdown/logs"
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultToolTimeout      = 600
	defaultOutputFormat     = "mp3"
	defaultAudioCodec       = "libmp3lame"
	defaultAudioBitrate     = "192k"
	defaultSampleRate       = 44100
	defaultChannels         = 2
	defaultMixFadeIn        = 2.0
	defaultMixIntro         = 3.0
	defaultMixFadeDown      = 2.0
	defaultMixFadeOut       = 3.0
	defaultMixBGMVolume     = 0.2
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StagingDir: defaultStagingDir,
			OutputDir:  defaultOutputDir,
			LogDir:     defaultLogDir,
		},
		Tools: Tools{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			TimeoutSeconds: defaultToolTimeout,
		},
		Output: Output{
			Format:       defaultOutputFormat,
			AudioCodec:   defaultAudioCodec,
			AudioBitrate: defaultAudioBitrate,
			SampleRate:   defaultSampleRate,
			Channels:     defaultChannels,
		},
		Mix: Mix{
			FadeIn:    defaultMixFadeIn,
			Intro:     defaultMixIntro,
			FadeDown:  defaultMixFadeDown,
			FadeOut:   defaultMixFadeOut,
			BGMVolume: defaultMixBGMVolume,
			Loudnorm:  true,
		},
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
