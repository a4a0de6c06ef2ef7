package model

//go:generate mockgen -destination=../mock/model/model.go -package=mock_model github.com/zeecrown/imager/model ImageProcessor

import "github.com/zeecrown/imager/normalizer"

// Image describes normalized image handed to storage.
type Image struct {
	URL              string `json:"url"`
	Folder           string `json:"folder"`
	FileName         string `json:"file_name"`
	ContentType      string `json:"content_type"`
	Resolution       string `json:"resolution"`
	Bytes            int    `json:"bytes"`
	Quality          int    `json:"quality"`
	SourceType       string `json:"source_type"`
	SourceResolution string `json:"source_resolution"`
	// Replaced is the storage key of the image removed in favour of this one.
	Replaced string `json:"replaced,omitempty"`
}

// ImageProcessor describes image normalization.
type ImageProcessor interface {
	Process(name string, src []byte, targetBytes int) (normalizer.Output, error)
}
