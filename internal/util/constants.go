package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimeOctetStream = "application/octet-stream"
)

var (
	AllowedRecordingExtensions = []string{".mp4", ".mov", ".mkv", ".webm"}
	AllowedScreenshotTypes     = []string{MimeImage}
)
