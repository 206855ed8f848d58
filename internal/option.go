package internal

// Option configures the daemon before Run wires its dependencies.
type Option func(*application)

type application struct {
	config  *Config
	offline bool
}

// WithConfig supplies the loaded configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithOffline pins the connectivity oracle to unreachable, so the daemon
// serves from the local store and never reports the remote as available.
func WithOffline() Option {
	return func(a *application) {
		a.offline = true
	}
}
