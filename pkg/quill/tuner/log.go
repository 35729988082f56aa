package tuner

import "github.com/jamesainslie/quill/pkg/quill/logging"

var log = logging.Get("tuner")
