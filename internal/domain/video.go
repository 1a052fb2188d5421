package domain

import (
	"encoding/base64"
	"time"
)

const MimeMP4 = "video/mp4"

type VideoArtifact struct {
	Data     []byte
	MimeType string
	Filename string
}

func (a VideoArtifact) Size() int { return len(a.Data) }

// DataURI inlines the artifact as a playable locator.
func (a VideoArtifact) DataURI() string {
	mime := a.MimeType
	if mime == "" {
		mime = MimeMP4
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// UploadRequest is everything a platform uploader receives. Video bytes are
// shared read-only across uploaders.
type UploadRequest struct {
	Video        []byte
	MimeType     string
	Title        string
	Description  string
	Keywords     []string
	Language     string
	CallToAction string
	Visibility   string
	PublishAt    *time.Time
}

type UploadOutcome struct {
	VideoID  string `json:"videoId"`
	ShareURL string `json:"shareUrl,omitempty"`
}
