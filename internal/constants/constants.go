package constants

// Tool name and related constants
const (
	// ToolName is the name of this tool
	ToolName = "remedy"

	// ConfigFileName is the default config file name
	ConfigFileName = ".remedy.yaml"

	// EnvVarPrefix is the prefix for environment variables
	EnvVarPrefix = "REMEDY"
)

// Workspace state layout constants
const (
	// StateDirName is the per-workspace directory holding engine state
	StateDirName = ".remedy"

	// SnapshotDirName is the subdirectory for state snapshots
	SnapshotDirName = "state"

	// LogDirName is the subdirectory for log files
	LogDirName = "logs"

	// LogFileName is the default log file name
	LogFileName = "remedy.log"

	// JournalFileName is the SQLite history journal file name
	JournalFileName = "remedy.db"
)

// Snapshot naming constants
const (
	// AnalysisSnapshotPrefix names persisted analysis state files
	AnalysisSnapshotPrefix = "analysis"

	// SolutionSnapshotPrefix names persisted pending-change files
	SolutionSnapshotPrefix = "solution"

	// SnapshotExt is the extension of uncompressed snapshots
	SnapshotExt = ".json"

	// SnapshotCompressedExt is the extension of zstd-compressed snapshots
	SnapshotCompressedExt = ".json.zst"

	// SnapshotIndexDigits is the zero-padded width of snapshot sequence numbers
	SnapshotIndexDigits = 6
)

// Output format constants
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Default tuning constants
const (
	// DefaultSnapshotRetain is how many snapshots of each kind are kept
	DefaultSnapshotRetain = 5

	// DefaultMaxConcurrency bounds parallel batch operations
	DefaultMaxConcurrency = 4

	// DefaultTimeoutSeconds bounds a whole batch operation
	DefaultTimeoutSeconds = 120
)
