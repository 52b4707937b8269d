package ordinals

import (
	"encoding/binary"

	"github.com/samber/lo"
)

// Inscription is the interpreted content of an envelope.
type Inscription struct {
	Content         []byte
	ContentEncoding string
	ContentType     string
	Delegate        *InscriptionId
	Metadata        []byte
	Metaprotocol    string
	Note            []byte
	Parent          *InscriptionId
	Pointer         *uint64
}

// HasDelegate reports whether the content must be served from another inscription.
func (i Inscription) HasDelegate() bool {
	return i.Delegate != nil
}

func newInscription(contentType []byte, chunks [][]byte, fields Fields) Inscription {
	inscription := Inscription{
		Content:     lo.Flatten(chunks),
		ContentType: string(contentType),
	}
	if len(inscription.Content) == 0 {
		inscription.Content = nil
	}
	if inscription.ContentType == "" {
		if value, ok := fields.Take(TagContentType); ok {
			inscription.ContentType = string(value)
		}
	}
	if value, ok := fields.Take(TagContentEncoding); ok {
		inscription.ContentEncoding = string(value)
	}
	if value, ok := fields.Take(TagMetaprotocol); ok {
		inscription.Metaprotocol = string(value)
	}
	if value, ok := fields.Take(TagMetadata); ok && len(value) > 0 {
		inscription.Metadata = value
	}
	if value, ok := fields.Take(TagNote); ok && len(value) > 0 {
		inscription.Note = value
	}
	if value, ok := fields.Take(TagDelegate); ok {
		if id, err := NewInscriptionIdFromValue(value); err == nil {
			inscription.Delegate = &id
		}
	}
	if value, ok := fields.Take(TagParent); ok {
		if id, err := NewInscriptionIdFromValue(value); err == nil {
			inscription.Parent = &id
		}
	}
	if value, ok := fields.Take(TagPointer); ok {
		inscription.Pointer = parsePointer(value)
	}
	return inscription
}

// parsePointer decodes a little-endian pointer. Values that do not fit in uint64 are ignored.
func parsePointer(value []byte) *uint64 {
	if len(value) > 8 {
		if lo.SomeBy(value[8:], func(b byte) bool { return b != 0 }) {
			return nil
		}
		value = value[:8]
	}
	var buf [8]byte
	copy(buf[:], value)
	return lo.ToPtr(binary.LittleEndian.Uint64(buf[:]))
}

// PointerValue encodes a pointer the way the pointer tag carries it.
func PointerValue(pointer uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], pointer)
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return buf[:end]
}
