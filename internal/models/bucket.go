package models

const (
	SkipReasonExcluded    = "excluded"
	SkipReasonNotIncluded = "not included"
)

type SyncRequest struct {
	Bucket      string
	Destination string
	Prefix      string
	Exclude     []string
	Include     []string
}

type DownloadedObject struct {
	Key          string `json:"s3_key"`
	RelativePath string `json:"relative_path"`
	LocalPath    string `json:"local_path"`
	Size         int64  `json:"size"`
}

type SkippedObject struct {
	Key    string `json:"s3_key"`
	Reason string `json:"reason"`
}

type SyncResult struct {
	Outcome
	BucketName      string             `json:"bucket_name"`
	Prefix          string             `json:"prefix"`
	LocalDirectory  string             `json:"local_directory"`
	DownloadedFiles []DownloadedObject `json:"downloaded_files"`
	SkippedFiles    []SkippedObject    `json:"skipped_files"`
	FailedFiles     []FailedItem       `json:"failed_files"`
	TotalFiles      int                `json:"total_files"`
	TotalSizeBytes  int64              `json:"total_size_bytes"`
	TotalSizeHuman  string             `json:"total_size_human"`
	OperationTime   string             `json:"operation_time"`
	Duration        string             `json:"duration"`
}

type PushRequest struct {
	Bucket      string
	Source      string
	Destination string
	Exclude     []string
	Include     []string
	Archive     bool
	DryRun      bool
}

type UploadItem struct {
	LocalPath  string `json:"local_path"`
	RemotePath string `json:"remote_path"`
	Size       int64  `json:"size"`
	IsArchived bool   `json:"is_archived"`
}

type PushResult struct {
	Outcome
	BucketName      string          `json:"bucket_name"`
	SourcePath      string          `json:"source_path"`
	DestinationPath string          `json:"destination_path"`
	Items           []UploadItem    `json:"items"`
	SkippedFiles    []SkippedObject `json:"skipped_files"`
	FailedFiles     []FailedItem    `json:"failed_files"`
	TotalFiles      int             `json:"total_files"`
	TotalSizeBytes  int64           `json:"total_size_bytes"`
	TotalSizeHuman  string          `json:"total_size_human"`
	OperationTime   string          `json:"operation_time"`
	ArchiveCreated  bool            `json:"archive_created"`
	Archive         *ArchiveInfo    `json:"archive,omitempty"`
	UploadDuration  string          `json:"upload_duration"`
	DryRun          bool            `json:"dry_run"`
}
