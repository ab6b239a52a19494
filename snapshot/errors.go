package snapshot

import "errors"

var (
	errShortHeader    = errors.New("snapshot shorter than header")
	errBadMagic       = errors.New("snapshot magic mismatch")
	errBadMetricTag   = errors.New("snapshot metric tag unknown")
	errShortSection   = errors.New("snapshot truncated inside a section")
	errMissingTrailer = errors.New("snapshot missing CRC32C trailer")
	errCRCMismatch    = errors.New("snapshot CRC32C checksum mismatch")
)
