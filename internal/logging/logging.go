// Package logging builds the daemon's zap logger.
package logging

import (
	"encoding/hex"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// JSONHex is the encoding name under which NewJSONHexEncoder is registered.
const JSONHex = "json-hex"

type jsonHexEncoder struct {
	zapcore.Encoder
}

// NewJSONHexEncoder returns a JSON encoder that renders binary fields as
// 0x-prefixed hex instead of base64.
func NewJSONHexEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &jsonHexEncoder{Encoder: zapcore.NewJSONEncoder(cfg)}
}

func (enc *jsonHexEncoder) AddBinary(key string, val []byte) {
	enc.AddString(key, "0x"+hex.EncodeToString(val))
}

func (enc *jsonHexEncoder) Clone() zapcore.Encoder {
	return &jsonHexEncoder{Encoder: enc.Encoder.Clone()}
}

var registerOnce sync.Once

func registerJSONHexEncoder() error {
	var err error
	registerOnce.Do(func() {
		err = zap.RegisterEncoder(JSONHex, func(cfg zapcore.EncoderConfig) (zapcore.Encoder, error) {
			return NewJSONHexEncoder(cfg), nil
		})
	})
	return err
}

// New builds a logger at level writing to stderr. encoding is "json",
// "json-hex" or "console"; console output uses the development layout.
func New(level, encoding string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if err := registerJSONHexEncoder(); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	switch encoding {
	case "json", JSONHex:
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("logging: unknown encoding %q", encoding)
	}
	cfg.Encoding = encoding
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
