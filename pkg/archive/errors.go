package archive

import "errors"

var (
	ErrInvalidConfig      = errors.New("archive: bucket and region are required")
	ErrFailedToLoadConfig = errors.New("archive: failed to load aws config")
	ErrExportFailed       = errors.New("archive: export failed")
	ErrUploadFailed       = errors.New("archive: upload failed")
	ErrListFailed         = errors.New("archive: listing failed")
)
