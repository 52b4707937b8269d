package ordinals

// Tag identifies a field in the tag section of an envelope. Unrecognized odd tags are ignored.
// Unrecognized even tags are kept but mark the inscription with UnrecognizedEvenField.
type Tag uint8

const (
	TagContentType     Tag = 1
	TagPointer         Tag = 2
	TagParent          Tag = 3
	TagMetadata        Tag = 5
	TagMetaprotocol    Tag = 7
	TagContentEncoding Tag = 9
	TagDelegate        Tag = 11
	TagNote            Tag = 15
	// TagNop is unrecognized
	TagNop Tag = 255
)

var allTags = map[Tag]struct{}{
	TagContentType:     {},
	TagPointer:         {},
	TagParent:          {},
	TagMetadata:        {},
	TagMetaprotocol:    {},
	TagContentEncoding: {},
	TagDelegate:        {},
	TagNote:            {},
}

func (t Tag) IsValid() bool {
	_, ok := allTags[t]
	return ok
}

// chunked tags may span several pushes, their values are concatenated in order.
var chunkedTags = map[Tag]struct{}{
	TagMetadata: {},
	TagNote:     {},
}

func (t Tag) IsChunked() bool {
	_, ok := chunkedTags[t]
	return ok
}

func (t Tag) IsEven() bool {
	return t%2 == 0
}

func (t Tag) Bytes() []byte {
	return []byte{byte(t)}
}

// Field is a single tag/value pair in the order it appears in the envelope.
type Field struct {
	Tag   Tag
	Value []byte
}

type Fields []Field

// Take returns the value of the tag. Chunked tags return every value concatenated, other tags return the first value.
func (fields Fields) Take(tag Tag) ([]byte, bool) {
	var (
		value []byte
		found bool
	)
	for _, field := range fields {
		if field.Tag != tag {
			continue
		}
		if !tag.IsChunked() {
			return field.Value, true
		}
		value = append(value, field.Value...)
		found = true
	}
	return value, found
}

func (fields Fields) Unrecognized() Fields {
	var unrecognized Fields
	for _, field := range fields {
		if !field.Tag.IsValid() {
			unrecognized = append(unrecognized, field)
		}
	}
	return unrecognized
}

func (fields Fields) HasDuplicate() bool {
	seen := make(map[Tag]struct{}, len(fields))
	for _, field := range fields {
		if field.Tag.IsChunked() {
			continue
		}
		if _, ok := seen[field.Tag]; ok {
			return true
		}
		seen[field.Tag] = struct{}{}
	}
	return false
}
