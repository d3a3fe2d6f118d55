package types

import "time"

// UploadRequest is what the HTTP layer hands to the pipeline for one file.
type UploadRequest struct {
	Data         []byte
	OriginalName string
	MimeType     string
	Size         int64
}

// StoredFile is an accepted upload persisted under a unique name.
type StoredFile struct {
	FileName     string `json:"filename"`
	OriginalName string `json:"originalname"`
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mimetype"`
}

type SvgDimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type ConversionResult struct {
	DownloadURL string        `json:"downloadUrl"`
	FileName    string        `json:"fileName"`
	Path        string        `json:"-"`
	Size        int64         `json:"size"`
	Width       int           `json:"width"`
	Height      int           `json:"height"`
	Duration    time.Duration `json:"-"`
}

// UploadRecord mirrors a row of the uploaded_file_info table.
type UploadRecord struct {
	ID           int64
	OriginalName string
	FileName     string
	Path         string
	MimeType     string
	Size         int64
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UploadResponse is the JSON body returned by POST /upload.
type UploadResponse struct {
	SavedFileInfo           StoredFile `json:"savedFileInfo"`
	ConvertedPngDownloadUrl string     `json:"convertedPngDownloadUrl"`
	ConvertedPngS3Url       string     `json:"convertedPngS3Url,omitempty"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}
