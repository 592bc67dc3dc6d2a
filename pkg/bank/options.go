package bank

// Decoder defaults
const (
	DefaultMinString        = 6
	DefaultMaxString        = 200
	DefaultCoefficientLimit = 10.0
	DefaultMinCoefficients  = 100
	DefaultMaxDecompressed  = 64 << 20
)

// DefaultAlignments are the byte offsets tried when scanning for float32 runs
var DefaultAlignments = []int{0, 4, 8, 16}

// DefaultSignatures are the manufacturer and product literals reported by Decode
var DefaultSignatures = []string{
	"EMU", "Audity", "AUDITY", "Z-Plane", "ZPLANE",
	"Proteus", "PROTEUS", "Morpheus", "MORPHEUS",
	"Vintage", "VINTAGE", "Keys", "KEYS",
}

// Options configures encoding and decoding
type Options struct {
	Observer         Observer
	MinString        int
	MaxString        int
	CoefficientLimit float64
	MinCoefficients  int
	Alignments       []int
	Signatures       []string
	MaxDecompressed  int64
}

// Option mutates Options
type Option func(*Options)

// DefaultOptions returns the decoder heuristics' default tuning
func DefaultOptions() Options {
	return Options{
		Observer:         NopObserver{},
		MinString:        DefaultMinString,
		MaxString:        DefaultMaxString,
		CoefficientLimit: DefaultCoefficientLimit,
		MinCoefficients:  DefaultMinCoefficients,
		Alignments:       DefaultAlignments,
		Signatures:       DefaultSignatures,
		MaxDecompressed:  DefaultMaxDecompressed,
	}
}

func newOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.Observer == nil {
		o.Observer = NopObserver{}
	}
	return o
}

// WithObserver sets the progress observer
func WithObserver(obs Observer) Option {
	return func(o *Options) { o.Observer = obs }
}

// WithStringLength sets the accepted printable run lengths
func WithStringLength(minLen, maxLen int) Option {
	return func(o *Options) {
		o.MinString = minLen
		o.MaxString = maxLen
	}
}

// WithCoefficientLimit sets the largest magnitude kept by the coefficient scan
func WithCoefficientLimit(limit float64) Option {
	return func(o *Options) { o.CoefficientLimit = limit }
}

// WithMinCoefficients sets how many values an alignment must yield to be reported
func WithMinCoefficients(n int) Option {
	return func(o *Options) { o.MinCoefficients = n }
}

// WithAlignments replaces the alignment offsets tried by the coefficient scan
func WithAlignments(offsets ...int) Option {
	return func(o *Options) { o.Alignments = offsets }
}

// WithSignatures replaces the literal markers searched for
func WithSignatures(markers ...string) Option {
	return func(o *Options) { o.Signatures = markers }
}

// WithMaxDecompressed caps the decompressed payload size
func WithMaxDecompressed(n int64) Option {
	return func(o *Options) { o.MaxDecompressed = n }
}
