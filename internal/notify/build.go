package notify

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

// Notifier kinds accepted by Build.
const (
	KindConsole = "console"
	KindDesktop = "desktop"
	KindRedis   = "redis"
	KindNATS    = "nats"
)

// Config selects and configures the notifiers built by Build.
type Config struct {
	Kinds []string

	Console io.Writer
	Color   bool

	RedisAddr    string
	RedisChannel string

	NATSURL     string
	NATSSubject string

	Retries uint64
	Logger  *zap.Logger
}

// Build connects every notifier named in cfg.Kinds. Network notifiers are
// wrapped in Retry. On error every connection made so far is closed.
func Build(ctx context.Context, cfg Config) (*Multi, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m := NewMulti()
	seen := make(map[string]bool)
	for _, raw := range cfg.Kinds {
		kind := strings.ToLower(strings.TrimSpace(raw))
		if kind == "" || seen[kind] {
			continue
		}
		seen[kind] = true

		n, err := build(ctx, kind, cfg, log)
		if err != nil {
			_ = m.Close()
			return nil, err
		}
		m.Add(n)
		log.Debug("Notifier enabled", zap.String("notifier", kind))
	}
	return m, nil
}

func build(ctx context.Context, kind string, cfg Config, log *zap.Logger) (Notifier, error) {
	switch kind {
	case KindConsole:
		if cfg.Console == nil {
			return nil, fmt.Errorf("console notifier needs an output")
		}
		return NewConsole(cfg.Console, cfg.Color), nil
	case KindDesktop:
		return NewDesktop()
	case KindRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis notifier needs --redis-addr")
		}
		r, err := DialRedis(ctx, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			return nil, err
		}
		return NewRetry(r, cfg.Retries, log), nil
	case KindNATS:
		if cfg.NATSURL == "" {
			return nil, fmt.Errorf("nats notifier needs --nats-url")
		}
		n, err := DialNATS(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return nil, err
		}
		return NewRetry(n, cfg.Retries, log), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q (want %s, %s, %s or %s)", kind, KindConsole, KindDesktop, KindRedis, KindNATS)
	}
}
