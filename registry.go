package musac

import (
	"hash/fnv"

	"github.com/kelindar/intmap"
)

// registryEntry pairs a sniffer with the constructor it guards, in the
// order Register was called -- insertion order determines precedence
// when multiple sniffers would accept the same stream (spec.md §4.4.2).
type registryEntry struct {
	sniff       Sniffer
	constructor Constructor
	name        string
}

// Registry dispatches an input stream to the first decoder whose
// Sniffer accepts it (C5). Construct it with NewRegistry: the zero value
// has no name index, and Register panics on it. Entries are
// typically registered once at process startup and the registry is
// immutable thereafter, the way the teacher's SDK tries candidate
// filenames for a game asset in a fixed order (sdk_files.go's load()).
//
// byName indexes entries by a hash of their registration name so
// NewByName can skip straight to a forced decoder instead of running
// every sniffer in order, the same O(1)-lookup-over-a-hashed-key shape
// internal/mul.Reader uses for its MUL entry table.
type Registry struct {
	entries []registryEntry
	byName  *intmap.Map
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byName: intmap.New(16, .95)}
}

// Register appends a sniff/construct pair under name (used only for
// diagnostics and NewByName). Later registrations are tried only after
// earlier ones have declined.
func (r *Registry) Register(name string, sniff Sniffer, constructor Constructor) {
	index := uint32(len(r.entries))
	r.entries = append(r.entries, registryEntry{sniff: sniff, constructor: constructor, name: name})
	r.byName.Store(nameHash(name), index)
}

// NewByName constructs and opens the decoder registered under name
// directly, bypassing sniffing entirely -- for callers that already
// know the format (a CLI --format flag, a file extension convention)
// and want to skip the sniff-in-order search FindDecoder otherwise does.
func (r *Registry) NewByName(name string, stream Stream) (Decoder, error) {
	index, ok := r.byName.Load(nameHash(name))
	if !ok {
		return nil, nil
	}
	dec := r.entries[index].constructor()
	if err := dec.Open(stream); err != nil {
		return nil, err
	}
	return dec, nil
}

func nameHash(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}

// FindDecoder returns the first registered decoder that accepts stream,
// already Open-ed against it. Open leaves the stream positioned for
// decoding (wav.Open ends at the data chunk, vorbis.Open ends mid-page
// after reading headers), so the stream position is only restored to
// its entry value when no sniffer accepts it or Open fails -- never on
// the success path, where the caller's next Decode must continue from
// where Open left off, per spec.md §4.4.2 and the round-trip property
// in §8 (the round-trip guarantee only applies to the declined path).
func (r *Registry) FindDecoder(stream Stream) (Decoder, error) {
	p0 := stream.Tell()

	for _, e := range r.entries {
		if !e.sniff(stream) {
			continue
		}
		stream.Seek(p0, SeekSet)
		dec := e.constructor()
		if err := dec.Open(stream); err != nil {
			stream.Seek(p0, SeekSet)
			return nil, err
		}
		return dec, nil
	}
	stream.Seek(p0, SeekSet)
	return nil, nil
}

// NewDefaultRegistry returns a Registry with every codec in C6
// registered, in the precedence order spec.md §6.3 documents (container
// formats with distinctive magic first, the synthesized-music formats
// that accept almost anything by file extension convention last).
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	registerBuiltinCodecs(r)
	return r
}
