package corpus

import (
	"fmt"

	"github.com/viant/bintly"
)

// Label marks a record as associated with a target identifier.
type Label struct {
	TargetID  string
	Annotator string
}

// Record is one document: its cleansed body plus derived annotations.
type Record struct {
	StreamID string
	Cleansed []byte
	NER      []byte
	Labels   []Label
}

// EncodeBinary writes the record to a bintly stream.
func (r *Record) EncodeBinary(stream *bintly.Writer) error {
	if len(r.Labels) > maxLabels {
		return fmt.Errorf("record %s: %d labels exceeds limit %d", r.StreamID, len(r.Labels), maxLabels)
	}
	stream.String(r.StreamID)
	stream.String(string(r.Cleansed))
	stream.String(string(r.NER))
	stream.Int16(int16(len(r.Labels)))
	for _, label := range r.Labels {
		stream.String(label.TargetID)
		stream.String(label.Annotator)
	}
	return nil
}

// DecodeBinary reads a record from a bintly stream.
func (r *Record) DecodeBinary(stream *bintly.Reader) error {
	var cleansed, ner string
	stream.String(&r.StreamID)
	stream.String(&cleansed)
	stream.String(&ner)
	var count int16
	stream.Int16(&count)
	if count < 0 {
		return fmt.Errorf("record %s: negative label count %d", r.StreamID, count)
	}
	r.Cleansed = nilIfEmpty(cleansed)
	r.NER = nilIfEmpty(ner)
	r.Labels = nil
	if count > 0 {
		r.Labels = make([]Label, count)
		for i := range r.Labels {
			stream.String(&r.Labels[i].TargetID)
			stream.String(&r.Labels[i].Annotator)
		}
	}
	return nil
}

const maxLabels = 1<<15 - 1

func nilIfEmpty(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}
