package checkpoint

import "time"

// DefaultPrefix namespaces every key a persistent store writes.
const DefaultPrefix = "lvflow:checkpoint:"

// Options configures the persistent stores.
type Options struct {
	Prefix string
	TTL    time.Duration // 0 keeps snapshots forever
}

// Option mutates Options.
type Option func(*Options)

// DefaultOptions returns DefaultPrefix and no expiry.
func DefaultOptions() Options {
	return Options{Prefix: DefaultPrefix}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *Options) { o.Prefix = prefix }
}

// WithTTL sets the snapshot expiry.
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) {
		if ttl >= 0 {
			o.TTL = ttl
		}
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	return o
}
