package config

const (
	defaultWorkspaceDir     = "~/.cache/wbgrab/runs"
	defaultDownloadsDir     = "downloads"
	defaultProductIDPattern = `/catalog/(\d+)/`
	defaultPreviewSuffix    = "preview.webp"
	defaultManifestSuffix   = "index.m3u8"
	defaultVideoSelector    = "video[src]"
	defaultDataVideoSel     = "div[src*='m3u8'], video[data-src*='m3u8']"
	defaultPhotoSection     = "section.user-photos"
	defaultPreviewSelector  = ".swiper-wrapper > .swiper-slide > img"
	defaultPageLoadWait     = 20
	defaultFindTimeout      = 30
	defaultScrollStep       = 500
	defaultPlaybackSettle   = 3
	defaultWorkers          = 6
	defaultSegmentRetries   = 3
	defaultManifestRetries  = 3
	defaultRetryBaseDelayMS = 500
	defaultRetryMaxDelayMS  = 8000
	defaultHTTPTimeout      = 30
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFmpegTimeout    = 600
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkspaceDir: defaultWorkspaceDir,
			DownloadsDir: defaultDownloadsDir,
		},
		Source: Source{
			AllowedHosts:       []string{"wildberries.ru"},
			ProductIDPattern:   defaultProductIDPattern,
			PreviewSuffix:      defaultPreviewSuffix,
			ManifestSuffix:     defaultManifestSuffix,
			VideoSelector:      defaultVideoSelector,
			DataVideoSelector:  defaultDataVideoSel,
			PhotoSectionArea:   defaultPhotoSection,
			PreviewSelector:    defaultPreviewSelector,
			PlaySelectors:      defaultPlaySelectors(),
			Headless:           false,
			PageLoadWait:       defaultPageLoadWait,
			FindTimeout:        defaultFindTimeout,
			ScrollStep:         defaultScrollStep,
			PlaybackSettleWait: defaultPlaybackSettle,
		},
		Download: Download{
			Workers:          defaultWorkers,
			SegmentRetries:   defaultSegmentRetries,
			ManifestRetries:  defaultManifestRetries,
			RetryBaseDelayMS: defaultRetryBaseDelayMS,
			RetryMaxDelayMS:  defaultRetryMaxDelayMS,
			HTTPTimeout:      defaultHTTPTimeout,
		},
		FFmpeg: FFmpeg{
			Binary:  defaultFFmpegBinary,
			Timeout: defaultFFmpegTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

// defaultPlaySelectors lists the known play-button hooks on product pages,
// tried in order before falling back to preview images.
func defaultPlaySelectors() []string {
	return []string{
		".slide__video-btn",
		".wb-player__btn",
		".wb-player__container",
		".videoThumb",
		".mix-block__video",
		"button[aria-label*='Play']",
	}
}
