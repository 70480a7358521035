package probe

// Option applies a configuration option to the Host.
type Option func(*Host)

// WithRoot prefixes every system path the probes read. Used to point the
// probes at a fixture tree.
func WithRoot(root string) Option {
	return func(h *Host) {
		h.root = root
	}
}

// WithFontDirs replaces the directories scanned for installed fonts.
func WithFontDirs(dirs ...string) Option {
	return func(h *Host) {
		h.fontDirs = dirs
	}
}

// WithEnvLookup replaces the environment variable lookup.
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(h *Host) {
		if lookup != nil {
			h.lookupEnv = lookup
		}
	}
}
