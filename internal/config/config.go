package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Tempo/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName           = "Go Tempo"
	BinaryName        = "tempo"
	AppID             = "com.github.tartampluch.go-tempo"
	AppDescription    = "Compose, sample and stream animation clocks."
	LocalhostBindAddr = "127.0.0.1"
	LogFileName       = "tempo.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for sensitive files like logs.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700

	// ChannelBufferSize defines the standard buffer size for internal signaling channels.
	ChannelBufferSize = 1
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagDescVersion  = "Show application version and exit."
	FlagDescDebug    = "Enable debug logging."
	FlagDescLang     = "Language of console messages (en, fr)."
	FlagDescExpr     = "Pipeline expression, e.g. \"normalize:2|bounce|easeinout\"."
	FlagDescURL      = "Download the pipeline expression from an http(s) URL."
	FlagDescFrom     = "First sampled time in seconds."
	FlagDescTo       = "Last sampled time in seconds."
	FlagDescStep     = "Sampling step in seconds."
	FlagDescFormat   = "Output format: table, json or csv."
	FlagDescConfig   = "Settings file (yaml, json or toml)."
	FlagDescPort     = "Override the server port."
	FlagDescSample   = "Sample a pipeline over a time range."
	FlagDescServe    = "Serve timelines over HTTP and WebSocket."
	FlagDescEasings  = "List the available easing curves."
	MsgVersionOutput = "%s version %s (%s, %s) %s/%s\n"
)

// -----------------------------------------------------------------------------
// Settings Keys (viper)
// -----------------------------------------------------------------------------

const (
	EnvPrefix = "TEMPO"

	KeyServerPort   = "server.port"
	KeyServerBind   = "server.bind"
	KeyLiveTickRate = "live.tick_rate"
	KeyTimelineExpr = "timeline.expr"
	KeyTimelineFrom = "timeline.from"
	KeyTimelineTo   = "timeline.to"
	KeyTimelineStep = "timeline.step"
	KeyLanguage     = "language"
)

// SupportedLanguages defines the list of available console languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort     = 18090
	DefaultTickRate = 30 // frames per second on /live
	DefaultExpr     = "normalize:2|bounce|easeinout"
	DefaultFrom     = 0.0
	DefaultTo       = 4.0
	DefaultStep     = 0.25
	DefaultLanguage = "en"
	DefaultFormat   = FormatTable

	MinPort = 1
	MaxPort = 65535

	// MaxSamples bounds a single timeline to protect RAM and response size.
	MaxSamples  = 100_000
	MaxTickRate = 240
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

// -----------------------------------------------------------------------------
// Pipeline Grammar
// -----------------------------------------------------------------------------

const (
	StageSeparator = "|"
	ArgSeparator   = ":"
	ArgListSep     = ","

	StageScale      = "scale"
	StageNegative   = "negative"
	StageOffset     = "offset"
	StageLoop       = "loop"
	StageClamp      = "clamp"
	StageMin        = "min"
	StageMax        = "max"
	StageBounce     = "bounce"
	StageNormalize  = "normalize"
	StageEase       = "ease"
	StageLinear     = "linear"
	StageEaseIn     = "easein"
	StageEaseOut    = "easeout"
	StageEaseInOut  = "easeinout"
	StageSine       = "sine"
	StageSmoothstep = "smoothstep"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	ShutdownTimeout     = 5 * time.Second
	ServerReadTimeout   = 10 * time.Second
	ServerWriteTimeout  = 30 * time.Second
	ServerIdleTimeout   = 60 * time.Second
	RetryAfterSeconds   = "10"
	AllowedMethods      = "GET, HEAD"
	MaxHTTPResponseSize = 64 * 1024 // a pipeline expression is a one-liner
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"

	RouteRoot   = "/"
	RouteSample = "/sample"
	RouteLive   = "/live"

	QueryExpr   = "expr"
	QueryFrom   = "from"
	QueryTo     = "to"
	QueryStep   = "step"
	QueryFrames = "frames" // /live only, 0 streams until the client leaves
)

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

const (
	WSBufferSize = 1024
	WSWriteWait  = 2 * time.Second
	WSPongWait   = 60 * time.Second
	WSPingPeriod = (WSPongWait * 9) / 10
	WSCloseWait  = time.Second
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"

	MimeJSON            = "application/json; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrEmptyPipeline   = "pipeline expression is empty"
	ErrUnknownStage    = "unknown pipeline stage"
	ErrStageArity      = "wrong number of stage arguments"
	ErrStageArgument   = "invalid stage argument"
	ErrNotNormalized   = "stage requires a normalized clock (add normalize:<duration> first)"
	ErrUnknownEasing   = "unknown easing function"
	ErrInvalidRequest  = "invalid sample request"
	ErrInvalidSettings = "invalid settings"
	ErrSettingsRead    = "failed to read settings file"
	ErrSettingsDecode  = "failed to decode settings"
	ErrUnknownFormat   = "unsupported output format"
	ErrEncode          = "failed to encode timeline"
	ErrServerStartup   = "server startup failed"
	ErrServerShutdown  = "server shutdown failed"
	ErrPortRequired    = "server port is required"
	ErrInvalidURL      = "invalid URL structure"
	ErrProtocol        = "unsupported protocol scheme (http/https only)"
	ErrSourceMissing   = "either an expression or a URL is required"
	ErrLogFile         = "failed to open log file"
	ErrCacheDir        = "could not determine user cache dir"
	ErrCreateDir       = "could not create app cache dir"
	ErrAppFailed       = "application failed unexpectedly"
	ErrWriteResp       = "failed to write response body"
	ErrWSUpgrade       = "websocket upgrade failed"
	ErrWSWrite         = "websocket write failed"
	ErrLocalesAccess   = "failed to access embedded locales"
	ErrLocaleLoad      = "failed to load locale file"
	ErrPublish         = "failed to publish timeline"
	ErrQueryNumber     = "query parameter is not a number"
	ErrNonFiniteRange  = "sample range must be finite"
	ErrNonFinite       = "timeline contains a non-finite value"
	ErrBodyTooLarge    = "response body exceeds the size limit"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgInitializing = "Timeline initializing, please try again shortly."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgInternalErr  = "Internal Server Error"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting    = "Starting application"
	MsgAppStop        = "Application stopped gracefully"
	MsgSampleStarted  = "Sampling started"
	MsgSampleDone     = "Sampling finished"
	MsgPipelineBuilt  = "Pipeline built"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Timeline cache updated"
	MsgSettingsLoaded = "Settings loaded"
	MsgSettingsReload = "Settings file changed, reloading"
	MsgLiveOpen       = "Live stream opened"
	MsgLiveClosed     = "Live stream closed"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgFetchStarted   = "Initiating expression download"
	MsgFetchBadStatus = "Server returned error status"
	MsgCtxCancel      = "Context cancelled, shutting down"
)

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeySummary      = "sample_summary" // Requires Count, Expr
	TKeyRange        = "sample_range"   // Requires Min, Max
	TKeyColTime      = "col_time"
	TKeyColValue     = "col_value"
	TKeyEasingsTitle = "easings_title"
	TKeyServeReady   = "serve_ready" // Requires URL
	TKeyServeStopped = "serve_stopped"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyStatus    = "status_code"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyExpr      = "expr"
	LogKeyStages    = "stages"
	LogKeyCount     = "count"
	LogKeyFrom      = "from"
	LogKeyTo        = "to"
	LogKeyStep      = "step"
	LogKeyTickRate  = "tick_rate"
	LogKeyRemote    = "remote"
	LogKeyFrames    = "frames"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDuration  = "duration_ms"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompMain     = "main"
	CompPipeline = "pipeline"
	CompSampler  = "sampler"
	CompFetcher  = "fetcher"
	CompServer   = "server"
	CompLive     = "live"
	CompSettings = "settings"
	CompI18n     = "i18n"
)
