package encode

import "errors"

var (
	errEmptyCorpus = errors.New("corpus must contain at least one document")
	errNotFitted   = errors.New("encoder has not been fitted; call Fit first")
)
