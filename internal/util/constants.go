package util

const TimeFormat = "2006-01-02 15:04:05"

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo = "video/"
	MimeImage = "image/"
	MimePDF   = "application/pdf"
	MimeZip   = "application/zip"
	MimeText  = "text/plain"
)

var AllowedResourceTypes = []string{MimeVideo, MimeImage, MimePDF, MimeZip, MimeText}

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)
