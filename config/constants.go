package constants

// Sampling engine
const (
	HISTORY_LENGTH            = 100  // points kept per history series
	UPDATE_INTERVAL_MS        = 1000 // tick interval
	MIN_RATE_INTERVAL_MS      = 1    // below this elapsed time a rate is not recomputed
	TOP_PROCESS_LIMIT         = 15
	SMOOTHING_PREVIOUS_WEIGHT = 0.7 // weight of the previous rate for estimated sources
	PROBE_TIMEOUT_SECONDS     = 2   // external diagnostic tools
)

// Unit divisors (kept per domain)
const (
	KB_DIVISOR        = 1024.0
	MB_DIVISOR        = 1024.0 * 1024.0
	GIB_DIVISOR       = 1024.0 * 1024.0 * 1024.0
	GPU_GB_DIVISOR    = 1e9
	CPU_MS_TO_PERCENT = 10.0 // CPU milliseconds per second -> percent of one core
)

// Event names emitted to consumers
const (
	EVENT_SYSTEM_UPDATE = "system-update"
	EVENT_BACKEND_ERROR = "backend-error"
)

// HTTP surface
const (
	DEFAULT_LISTEN_ADDR = "127.0.0.1:7878"
	CONTENT_TYPE_CBOR   = "application/cbor"
	CONTENT_TYPE_JSON   = "application/json"
	SSE_BUFFER_SIZE     = 16 // events buffered per SSE client before drops
	HTTP_SHUTDOWN_SEC   = 5
)

// OpenTelemetry export
const (
	OTLP_PATH                     = "/v1/metrics"
	DEFAULT_OTEL_INTERVAL_SECONDS = 30
	SERVICE_NAME                  = "sysmon"
	SERVICE_VERSION               = "1.0.0"
)

// File paths
const (
	CONFIG_DIR_NAME       = "/.sysmon"
	CONFIG_FILE_NAME      = "config.yaml"
	LOG_FILE              = "/tmp/sysmon.log"
	PID_FILE              = "/tmp/sysmon.pid"
	CACHE_FILE            = "/tmp/sysmon_snapshot.cbor"
	CACHE_MAX_AGE_SECONDS = 10
)

// Environment
const (
	ENV_PREFIX = "SYSMON"
)
