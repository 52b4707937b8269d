package ordinals

import (
	"bytes"
	"testing"

	"github.com/Cleverse/go-utilities/utils"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/gaze-network/doginals-indexer/core/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pushScript(t *testing.T, pushes ...[]byte) []byte {
	t.Helper()

	builder := NewPushScriptBuilder()
	for _, data := range pushes {
		builder.AddData(data)
	}
	script, err := builder.Script()
	require.NoError(t, err)
	return script
}

func TestParseEnvelopeScript(t *testing.T) {
	signature := bytes.Repeat([]byte{0x30}, 71)
	pubKey := bytes.Repeat([]byte{0x02}, 33)

	t.Run("empty_script", func(t *testing.T) {
		assert.Nil(t, ParseEnvelopeScript(nil))
	})
	t.Run("no_marker", func(t *testing.T) {
		assert.Nil(t, ParseEnvelopeScript(pushScript(t, signature, pubKey)))
	})
	t.Run("legacy_single_chunk", func(t *testing.T) {
		script := pushScript(t, protocolId, []byte{1}, []byte("text/plain;charset=utf-8"), nil, []byte("woof"), signature, pubKey)

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.True(t, envelope.Legacy)
		assert.Empty(t, envelope.Fields)
		assert.Equal(t, Inscription{
			Content:     []byte("woof"),
			ContentType: "text/plain;charset=utf-8",
		}, envelope.Inscription)
	})
	t.Run("small_integer_opcodes", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddData(protocolId).
			AddOp(txscript.OP_2).
			AddData([]byte("text/plain")).
			AddOp(txscript.OP_1).
			AddData([]byte("such ")).
			AddOp(txscript.OP_0).
			AddData([]byte("wow")).
			Script())

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.Equal(t, []byte("such wow"), envelope.Inscription.Content)
		assert.Equal(t, [][]byte{[]byte("such "), []byte("wow")}, envelope.Chunks)
	})
	t.Run("tag_section", func(t *testing.T) {
		script := pushScript(t,
			protocolId, []byte{1}, []byte("application/json"), nil, []byte(`{"p":"drc-20"}`),
			nil,
			TagContentEncoding.Bytes(), []byte("br"),
			TagMetaprotocol.Bytes(), []byte("drc-20"),
			TagPointer.Bytes(), PointerValue(1000),
			TagNote.Bytes(), []byte("hello "),
			TagNote.Bytes(), []byte("world"),
			nil,
		)

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.False(t, envelope.Legacy)
		assert.False(t, envelope.DuplicateField)
		assert.False(t, envelope.UnrecognizedEvenField)
		assert.Equal(t, Inscription{
			Content:         []byte(`{"p":"drc-20"}`),
			ContentType:     "application/json",
			ContentEncoding: "br",
			Metaprotocol:    "drc-20",
			Note:            []byte("hello world"),
			Pointer:         lo.ToPtr(uint64(1000)),
		}, envelope.Inscription)
	})
	t.Run("content_type_from_tag", func(t *testing.T) {
		script := pushScript(t, protocolId, []byte{1}, nil, nil, []byte("x"), nil, TagContentType.Bytes(), []byte("text/html"), nil)

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.Equal(t, "text/html", envelope.Inscription.ContentType)
	})
	t.Run("duplicate_field", func(t *testing.T) {
		script := pushScript(t, protocolId, nil, nil, nil,
			TagContentEncoding.Bytes(), []byte("gzip"),
			TagContentEncoding.Bytes(), []byte("br"),
			nil,
		)

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.True(t, envelope.DuplicateField)
		assert.Equal(t, "gzip", envelope.Inscription.ContentEncoding)
	})
	t.Run("unrecognized_tags", func(t *testing.T) {
		script := pushScript(t, protocolId, nil, nil, nil,
			[]byte{67}, []byte("odd"),
			[]byte{66}, []byte("even"),
			nil,
		)

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.True(t, envelope.UnrecognizedEvenField)
		assert.Equal(t, Fields{
			{Tag: 67, Value: []byte("odd")},
			{Tag: 66, Value: []byte("even")},
		}, envelope.Fields.Unrecognized())
	})
	t.Run("pointer_overflow_ignored", func(t *testing.T) {
		script := pushScript(t, protocolId, nil, nil, nil,
			TagPointer.Bytes(), []byte{0, 0, 0, 0, 0, 0, 0, 0, 1},
			nil,
		)

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.Nil(t, envelope.Inscription.Pointer)
	})
	t.Run("pointer_trailing_zero_bytes", func(t *testing.T) {
		script := pushScript(t, protocolId, nil, nil, nil,
			TagPointer.Bytes(), []byte{1, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			nil,
		)

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.Equal(t, lo.ToPtr(uint64(1)), envelope.Inscription.Pointer)
	})
	t.Run("second_marker_after_malformed_one", func(t *testing.T) {
		script := utils.Must(NewPushScriptBuilder().
			AddData(protocolId).
			AddOp(txscript.OP_DUP).
			AddData(protocolId).
			AddData([]byte{1}).
			AddData([]byte("text/plain")).
			AddData(nil).
			AddData([]byte("second")).
			Script())

		envelope := ParseEnvelopeScript(script)
		require.NotNil(t, envelope)
		assert.Equal(t, []byte("second"), envelope.Inscription.Content)
	})
	t.Run("only_first_envelope", func(t *testing.T) {
		first := pushScript(t, protocolId, []byte{1}, []byte("text/plain"), nil, []byte("first"), nil, nil)
		second := pushScript(t, protocolId, []byte{1}, []byte("text/plain"), nil, []byte("second"), nil, nil)

		envelope := ParseEnvelopeScript(append(first, second...))
		require.NotNil(t, envelope)
		assert.Equal(t, []byte("first"), envelope.Inscription.Content)
	})
}

func TestParseEnvelopeScriptMalformed(t *testing.T) {
	tests := []struct {
		name   string
		script func(t *testing.T) []byte
	}{
		{
			name: "chunk count larger than chunks",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, []byte{2}, []byte("text/plain"), []byte{1}, []byte("a"))
			},
		},
		{
			name: "not a countdown",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, []byte{2}, []byte("text/plain"), nil, []byte("a"), []byte{1}, []byte("b"))
			},
		},
		{
			name: "chunk count too large",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, bytes.Repeat([]byte{1}, 9), []byte("text/plain"))
			},
		},
		{
			name: "missing content type",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, []byte{1})
			},
		},
		{
			name: "truncated push",
			script: func(t *testing.T) []byte {
				script := pushScript(t, protocolId, []byte{1}, []byte("text/plain"), nil)
				return append(script, txscript.OP_DATA_5, 'a')
			},
		},
		{
			name: "unterminated tag section",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, []byte{1}, []byte("text/plain"), nil, []byte("a"), nil, TagMetaprotocol.Bytes(), []byte("drc-20"))
			},
		},
		{
			name: "tag without value",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, []byte{1}, []byte("text/plain"), nil, []byte("a"), nil, TagMetaprotocol.Bytes())
			},
		},
		{
			name: "legacy without chunks",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, nil, []byte("text/plain"), bytes.Repeat([]byte{0x30}, 72), bytes.Repeat([]byte{0x02}, 71))
			},
		},
		{
			name: "legacy without chunks at end of script",
			script: func(t *testing.T) []byte {
				return pushScript(t, protocolId, nil, []byte("text/plain"))
			},
		},
		{
			name: "non push opcode inside chunks",
			script: func(t *testing.T) []byte {
				return utils.Must(NewPushScriptBuilder().
					AddData(protocolId).
					AddData([]byte{1}).
					AddData([]byte("text/plain")).
					AddOp(txscript.OP_CHECKSIG).
					Script())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ParseEnvelopeScript(tt.script(t)))
		})
	}
}

func TestParseEnvelopes(t *testing.T) {
	envelopeScript := func(content string) []byte {
		return pushScript(t, protocolId, []byte{1}, []byte("text/plain"), nil, []byte(content), nil, nil)
	}
	tx := &types.Transaction{
		TxIn: []*types.TxIn{
			{SignatureScript: envelopeScript("a")},
			{SignatureScript: pushScript(t, bytes.Repeat([]byte{0x30}, 71))},
			{SignatureScript: envelopeScript("b")},
		},
	}

	envelopes := ParseEnvelopes(tx)
	require.Len(t, envelopes, 2)
	assert.Equal(t, uint32(0), envelopes[0].InputIndex)
	assert.Equal(t, uint32(0), envelopes[0].Offset)
	assert.Equal(t, []byte("a"), envelopes[0].Inscription.Content)
	assert.Equal(t, uint32(2), envelopes[1].InputIndex)
	assert.Equal(t, uint32(1), envelopes[1].Offset)
	assert.Equal(t, []byte("b"), envelopes[1].Inscription.Content)
}

func TestParsePartial(t *testing.T) {
	first := pushScript(t, protocolId, []byte{3}, []byte("text/plain"), []byte{2}, []byte("much "))

	envelope, partial := ParseScript(first)
	require.Nil(t, envelope)
	require.NotNil(t, partial)
	assert.Equal(t, &Partial{
		ContentType: []byte("text/plain"),
		Chunks:      [][]byte{[]byte("much ")},
		Remaining:   2,
	}, partial)
	assert.Nil(t, ParseEnvelopeScript(first))

	t.Run("no chunks yet", func(t *testing.T) {
		envelope, partial := ParseScript(pushScript(t, protocolId, []byte{1}, []byte("text/plain")))
		assert.Nil(t, envelope)
		require.NotNil(t, partial)
		assert.Empty(t, partial.Chunks)
		assert.Equal(t, uint64(1), partial.Remaining)
	})
	t.Run("complete envelope wins", func(t *testing.T) {
		script := pushScript(t, protocolId, []byte{1}, []byte("text/plain"), nil, []byte("a"), nil, nil)
		envelope, partial := ParseScript(script)
		assert.NotNil(t, envelope)
		assert.Nil(t, partial)
	})
	t.Run("continue and complete", func(t *testing.T) {
		middle, partial := partial.Continue(pushScript(t, []byte{1}, []byte("inscribe ")))
		require.Nil(t, middle)
		require.NotNil(t, partial)
		assert.Equal(t, uint64(1), partial.Remaining)

		// data after the last chunk is ignored
		envelope, rest := partial.Continue(pushScript(t, nil, []byte("wow"), bytes.Repeat([]byte{0x30}, 71)))
		require.NotNil(t, envelope)
		assert.Nil(t, rest)
		assert.True(t, envelope.Legacy)
		assert.Equal(t, Inscription{
			Content:     []byte("much inscribe wow"),
			ContentType: "text/plain",
		}, envelope.Inscription)
	})
	t.Run("continue does not modify the partial", func(t *testing.T) {
		_, _ = partial.Continue(pushScript(t, []byte{1}, []byte("inscribe ")))
		assert.Len(t, partial.Chunks, 1)
	})

	broken := []struct {
		name   string
		script []byte
	}{
		{name: "empty script", script: nil},
		{name: "wrong index", script: pushScript(t, nil, []byte("wow"))},
		{name: "index without chunk", script: pushScript(t, []byte{1})},
		{name: "signature", script: pushScript(t, bytes.Repeat([]byte{0x30}, 71), bytes.Repeat([]byte{0x02}, 33))},
	}
	for _, tt := range broken {
		t.Run(tt.name, func(t *testing.T) {
			envelope, rest := partial.Continue(tt.script)
			assert.Nil(t, envelope)
			assert.Nil(t, rest)
		})
	}
}

func TestBuildEnvelopeScriptRoundTrip(t *testing.T) {
	delegate := NewInscriptionId(*utils.Must(chainhash.NewHashFromStr("3333333333333333333333333333333333333333333333333333333333333333")), 2)

	tests := []struct {
		name     string
		envelope *Envelope
	}{
		{
			name: "chunks and tags",
			envelope: &Envelope{
				ContentType: []byte("text/plain"),
				Chunks:      [][]byte{[]byte("much "), []byte("inscribe "), bytes.Repeat([]byte("x"), 520)},
				Fields: Fields{
					{Tag: TagMetaprotocol, Value: []byte("drc-20")},
					{Tag: TagMetadata, Value: []byte{0xa1}},
					{Tag: TagMetadata, Value: []byte{0x61, 0x62}},
					{Tag: TagPointer, Value: PointerValue(20)},
					{Tag: 99, Value: []byte("unknown")},
				},
			},
		},
		{
			name: "delegate without content",
			envelope: &Envelope{
				Fields: Fields{
					{Tag: TagDelegate, Value: delegate.Value()},
				},
			},
		},
		{
			name: "legacy",
			envelope: &Envelope{
				ContentType: []byte("image/png"),
				Chunks:      [][]byte{{0x89, 0x50, 0x4e, 0x47}},
				Legacy:      true,
			},
		},
		{
			name: "many chunks",
			envelope: &Envelope{
				ContentType: []byte("text/plain"),
				Chunks: lo.Times(20, func(i int) []byte {
					return []byte{byte('a' + i)}
				}),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			script, err := BuildEnvelopeScript(tt.envelope)
			require.NoError(t, err)

			decoded := ParseEnvelopeScript(script)
			require.NotNil(t, decoded)
			assert.Equal(t, tt.envelope.ContentType, decoded.ContentType)
			assert.Equal(t, tt.envelope.Chunks, decoded.Chunks)
			assert.Equal(t, tt.envelope.Fields, decoded.Fields)
			assert.Equal(t, tt.envelope.Legacy, decoded.Legacy)
		})
	}

	t.Run("delegate is interpreted", func(t *testing.T) {
		script, err := BuildEnvelopeScript(tests[1].envelope)
		require.NoError(t, err)

		decoded := ParseEnvelopeScript(script)
		require.NotNil(t, decoded)
		assert.Equal(t, &delegate, decoded.Inscription.Delegate)
		assert.Nil(t, decoded.Inscription.Content)
	})
}
