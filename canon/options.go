package canon

// Options configures a Translation Context.
type Options struct {
	// CanonicalDialect is the $schema identifier written onto canonical schemas
	// (default: JSON Schema draft-07).
	CanonicalDialect string

	// ExtensionKey names the vendor extension that carries the canonical id
	// (default: "x-canonical").
	ExtensionKey string

	// KeepProperties lists vendor keys that entity translators copy through
	// verbatim (see Context.KeptProperties).
	KeepProperties []string

	// InlineLocalRefs makes the canonicalizer resolve local pointers found
	// inside container keywords instead of keeping them as references.
	InlineLocalRefs bool

	// Hasher turns encoded id discriminators into identifiers. If nil, the
	// keyed BLAKE3 hasher is used.
	Hasher Hasher

	// SkipHashing makes GenerateRaw return its template verbatim.
	SkipHashing bool

	// Logging configuration. Logger takes precedence; otherwise a non-empty
	// LogLevel logs to stderr and an empty one discards logs.
	LogLevel string // "error", "warn", "info", "debug" (default: "warn")
	Logger   Logger
}

// DefaultOptions returns the default configuration for a Translation Context.
func DefaultOptions() Options {
	return Options{
		CanonicalDialect: DraftSevenDialect,
		ExtensionKey:     "x-canonical",
		InlineLocalRefs:  false,
		Hasher:           nil, // keyed BLAKE3
		SkipHashing:      false,
		LogLevel:         "warn",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.CanonicalDialect == "" {
		o.CanonicalDialect = def.CanonicalDialect
	}
	if o.ExtensionKey == "" {
		o.ExtensionKey = def.ExtensionKey
	}
	if o.Hasher == nil {
		o.Hasher = Blake3Hasher
	}
	return o
}
