package output

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Network string         `json:"network" yaml:"network"`
	Address common.Address `json:"address" yaml:"address"`
}

type records []record

func (r records) TableHeader() []string {
	return []string{"Network", "Address"}
}

func (r records) TableRows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, rec := range r {
		rows = append(rows, []string{rec.Network, rec.Address.Hex()})
	}
	return rows
}

var addr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestFormatterFormats(t *testing.T) {
	data := records{{Network: "sepolia", Address: addr}}

	tests := []struct {
		format string
		want   []string
	}{
		{FormatJSON, []string{`"network": "sepolia"`, `"address": "0x00000000000000000000000000000000000000aa"`}},
		{FormatYAML, []string{"- network: sepolia", "0x00000000000000000000000000000000000000aa"}},
		{FormatTable, []string{"NETWORK", "sepolia", addr.Hex()}},
		{"", []string{"NETWORK"}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewFormatter(tt.format, &buf).Print(data))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestFormatterFieldTable(t *testing.T) {
	var buf bytes.Buffer
	err := NewFormatter(FormatTable, &buf).Print(map[string]any{"b": 2, "a": "x", "nested": map[string]any{"k": true}})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, `{"k":true}`)
	assert.Less(t, bytes.Index([]byte(out), []byte(" a ")), bytes.Index([]byte(out), []byte(" b ")))
}

func TestFormatterEmptyAndUnsupported(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(FormatTable, &buf).Print(records{}))
	assert.Equal(t, "No data found\n", buf.String())

	assert.Error(t, NewFormatter("xml", &buf).Print(records{}))
}
