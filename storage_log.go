package kvbucket

import (
	"context"
	"log/slog"
)

type LogOptions struct {
	// Name identifies the storage in log records.
	Name string
	// Level is used for successful operations. Defaults to slog.LevelDebug.
	Level slog.Leveler
	// SuppressValues logs value lengths instead of value bytes.
	SuppressValues bool
}

func (o *LogOptions) fillDefaults() {
	if o.Name == "" {
		o.Name = "kv"
	}
	if o.Level == nil {
		o.Level = slog.LevelDebug
	}
}

// WithLogging wraps st so that every Get and Set is logged. Failures are
// logged at Error regardless of opt.Level, and returned unchanged.
func WithLogging(st Storage, logger *slog.Logger, opt LogOptions) Storage {
	opt.fillDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingStorage{st, logger, opt}
}

type loggingStorage struct {
	st     Storage
	logger *slog.Logger
	opt    LogOptions
}

func (s *loggingStorage) Get(key []byte) ([]byte, error) {
	ctx := context.Background()
	v, err := s.st.Get(key)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "kvbucket: get failed", slog.String("storage", s.opt.Name), hexAttr("key", key), slog.Any("err", err))
		return nil, err
	}
	if lvl := s.opt.Level.Level(); s.logger.Enabled(ctx, lvl) {
		s.logger.LogAttrs(ctx, lvl, "kvbucket: get", slog.String("storage", s.opt.Name), hexAttr("key", key), s.valueAttr(v))
	}
	return v, nil
}

func (s *loggingStorage) Set(key, value []byte) error {
	ctx := context.Background()
	err := s.st.Set(key, value)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "kvbucket: set failed", slog.String("storage", s.opt.Name), hexAttr("key", key), slog.Any("err", err))
		return err
	}
	if lvl := s.opt.Level.Level(); s.logger.Enabled(ctx, lvl) {
		s.logger.LogAttrs(ctx, lvl, "kvbucket: set", slog.String("storage", s.opt.Name), hexAttr("key", key), s.valueAttr(value))
	}
	return nil
}

func (s *loggingStorage) valueAttr(v []byte) slog.Attr {
	if s.opt.SuppressValues {
		if v == nil {
			return slog.String("val", "<nil>")
		}
		return slog.Int("val_len", len(v))
	}
	return hexAttr("val", v)
}
