package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valmirpst/gestao-financeira-ai-sub000/internal/encoding"
)

func TestDecode(t *testing.T) {
	const header = "Data;Lançamento;Valor\n"

	// ç = 0xE7, ã = 0xE3 in both Latin-1 and Windows-1252.
	latin1 := []byte{
		'D', 'a', 't', 'a', ';', 'L', 'a', 'n', 0xE7, 'a', 'm', 'e', 'n', 't', 'o', ';',
		'V', 'a', 'l', 'o', 'r', '\n',
	}

	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "utf8 passthrough",
			input: []byte("Descrição;Valor\nPadaria São João;-12,50\n"),
			want:  "Descrição;Valor\nPadaria São João;-12,50\n",
		},
		{
			name:  "latin1",
			input: latin1,
			want:  header,
		},
		{
			name:  "utf8 bom stripped",
			input: append([]byte{0xEF, 0xBB, 0xBF}, header...),
			want:  header,
		},
		{
			name:  "utf16le bom",
			input: []byte{0xFF, 0xFE, 'O', 0, 'k', 0},
			want:  "Ok",
		},
		{
			name:  "empty",
			input: nil,
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _, err := encoding.Decode(bytes.NewReader(tt.input))
			require.NoError(t, err)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestDecode_ReportsCharset(t *testing.T) {
	_, charset, err := encoding.Decode(bytes.NewReader([]byte("Descrição")))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, charset)

	_, charset, err = encoding.Decode(bytes.NewReader([]byte{0xEF, 0xBB, 0xBF, 'a'}))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, charset)
}
