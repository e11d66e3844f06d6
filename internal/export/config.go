package export

import (
	"os"
	"strings"

	"github.com/paulproteus/for-each-meteor-app/internal/config"
	"github.com/paulproteus/for-each-meteor-app/internal/foundation/errors"
)

// NewFromConfig builds the exporter described by cfg.Export.
func NewFromConfig(cfg *config.Config) (*Exporter, error) {
	ec := cfg.Export
	var indexer Indexer
	if ec.IndexScript != "" {
		indexer = ScriptIndexer{Script: ec.IndexScript}
	} else {
		indexer = NewMarkdownIndexer("Meteor apps for Sandstorm")
	}

	var mirror Mirror = NoopMirror{}
	switch {
	case ec.MirrorURL == "":
	case strings.HasPrefix(ec.MirrorURL, "s3://"):
		m, err := NewS3Mirror(ec.MirrorURL, S3Options{
			Endpoint:  ec.S3Endpoint,
			AccessKey: ec.S3AccessKey,
			SecretKey: ec.S3SecretKey,
			UseSSL:    ec.S3UseSSL,
		})
		if err != nil {
			return nil, errors.ConfigError("invalid S3 mirror configuration").
				WithCause(err).WithContext("env", "MIRROR_URL").Build()
		}
		mirror = m
	default:
		mirror = RsyncMirror{Target: ec.MirrorURL}
	}
	return New(ec.Dir, indexer, mirror), nil
}

func fileExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.Mode().IsRegular()
}
