package domain

import "time"

// Publish attempt outcomes.
const (
	PublishSuccess = "SUCCESS"
	PublishFailed  = "FAILED"
)

// PublishHistory is the immutable record of one publish attempt.
type PublishHistory struct {
	ID              string
	DataSetArn      string
	Version         int
	PublishedAt     time.Time
	S3Key           string
	S3VersionID     string
	RulesDataSetArn string
	PermissionCount int
	Status          string
	Message         string
	CSVSnapshot     string
}
