package models

// FolderTransferResult describes a recursive SFTP download or upload. Files
// holds local paths for downloads and remote paths for uploads.
type FolderTransferResult struct {
	Outcome
	Direction      string       `json:"direction"`
	RemoteFolder   string       `json:"remote_folder"`
	LocalFolder    string       `json:"local_folder"`
	Files          []string     `json:"files"`
	FileCount      int          `json:"file_count"`
	TotalSizeBytes int64        `json:"total_size_bytes"`
	TotalSizeHuman string       `json:"total_size_human"`
	FailedFiles    []FailedItem `json:"failed_files"`
	Duration       string       `json:"duration"`
}

const (
	DirectionDownload = "download"
	DirectionUpload   = "upload"
)

type ScriptRequest struct {
	LocalScript     string
	RemoteOutput    string
	LocalDownload   string
	Args            string
	RemoteScriptDir string
	Cleanup         bool
}

type ExecutionResult struct {
	Outcome
	ExitStatus       int    `json:"exit_status"`
	Stdout           string `json:"stdout"`
	Stderr           string `json:"stderr"`
	RemoteScriptPath string `json:"remote_script_path,omitempty"`
	RemoteFilePath   string `json:"remote_file_path,omitempty"`
	LocalFilePath    string `json:"local_file_path,omitempty"`
	FileSize         int64  `json:"file_size"`
	ScriptCleanedUp  bool   `json:"script_cleaned_up"`
	CleanupError     string `json:"cleanup_error,omitempty"`
}
