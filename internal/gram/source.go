package gram

// Source names a grammar file and holds its bytes, adapted from the
// (name, content) half of github.com/ava12/llx/source.Source — the
// multi-file queue/stitching half has no analogue here since a grammar
// description is always a single, non-streamed file.
type Source struct {
	name    string
	content []byte
}

// NewSource wraps a grammar file's name and content.
func NewSource(name string, content []byte) *Source {
	return &Source{name: name, content: content}
}

func (s *Source) Name() string   { return s.name }
func (s *Source) Content() []byte { return s.content }
func (s *Source) Len() int       { return len(s.content) }

// pos implements ipgerr.SourcePos for a given cursor position within this source.
type pos struct {
	src       *Source
	line, col int
}

func (p pos) SourceName() string { return p.src.name }
func (p pos) Line() int          { return p.line }
func (p pos) Col() int           { return p.col }
