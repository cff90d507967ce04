package astparser_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VectorBits/Reentry/src/internal/astparser"
	at "github.com/VectorBits/Reentry/src/internal/astparser/asttest"
)

func unit(t *testing.T, path, contract string) []byte {
	t.Helper()
	c := at.Contract(contract, nil, at.StateVar("x", "uint256"))
	c.ID = 7
	raw, err := json.Marshal(at.Source(path, c).AST)
	require.NoError(t, err)
	return raw
}

func write(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func paths(sources []*astparser.ParsedSource) []string {
	out := make([]string, len(sources))
	for i, s := range sources {
		out[i] = s.Path
	}
	return out
}

func TestLoadPathFormats(t *testing.T) {
	dir := t.TempDir()
	a, b := unit(t, "contracts/A.sol", "A"), unit(t, "contracts/B.sol", "B")

	buildInfo := []byte(`{"output":{"sources":{"contracts/B.sol":{"id":1,"ast":` + string(b) +
		`},"contracts/A.sol":{"id":0,"ast":` + string(a) + `}}}}`)
	standard := []byte(`{"sources":{"contracts/A.sol":{"id":0,"ast":` + string(a) + `}}}`)
	stream := []byte("\n======= contracts/A.sol =======\n" + string(a) + "\n\n======= contracts/B.sol =======\n" + string(b) + "\n")

	tests := []struct {
		name string
		data []byte
		want []string
	}{
		{"source_unit", a, []string{"contracts/A.sol"}},
		{"build_info", buildInfo, []string{"contracts/A.sol", "contracts/B.sol"}},
		{"standard_json", standard, []string{"contracts/A.sol"}},
		{"compact_stream", stream, []string{"contracts/A.sol", "contracts/B.sol"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources, err := astparser.LoadPath(write(t, dir, tt.name+".json", tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, paths(sources))
			assert.NotNil(t, sources[0].NodesByID[7])
		})
	}
}

func TestLoadPathDirectory(t *testing.T) {
	dir := t.TempDir()
	a := unit(t, "contracts/A.sol", "A")
	write(t, dir, "out/A.json", a)
	write(t, dir, "out/nested/A.copy.json", a)
	write(t, dir, "out/B.JSON", unit(t, "contracts/B.sol", "B"))
	write(t, dir, "out/notes.txt", []byte("ignored"))

	sources, err := astparser.LoadPath(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"contracts/A.sol", "contracts/B.sol"}, paths(sources), "duplicates collapse, order is by path")
	assert.Equal(t, []string{filepath.Join(dir, "out/A.json"), filepath.Join(dir, "out/nested/A.copy.json")},
		sources[0].Origins, "the kept unit resolves ids from every file it was found in")
	assert.Equal(t, []string{filepath.Join(dir, "out/B.JSON")}, sources[1].Origins)
}

func TestLoadPathErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := astparser.LoadPath(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.Mkdir(empty, 0755))
	_, err = astparser.LoadPath(empty)
	assert.ErrorIs(t, err, astparser.ErrNoSources)

	_, err = astparser.LoadPath(write(t, dir, "garbage.json", []byte("not json at all")))
	assert.Error(t, err)
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a := at.Source("A.sol", at.Contract("A", nil))
	b := at.Source("B.sol", at.Contract("B", nil))
	assert.Equal(t, astparser.Fingerprint([]*astparser.ParsedSource{a, b}), astparser.Fingerprint([]*astparser.ParsedSource{b, a}))
	assert.NotEqual(t, astparser.Fingerprint([]*astparser.ParsedSource{a}), astparser.Fingerprint([]*astparser.ParsedSource{a, b}))
}

func TestParseSrc(t *testing.T) {
	tests := []struct {
		src  string
		want astparser.Location
		ok   bool
	}{
		{"120:45:0", astparser.Location{Offset: 120, Length: 45, File: 0}, true},
		{"7:3", astparser.Location{Offset: 7, Length: 3, File: -1}, true},
		{"", astparser.Location{}, false},
		{"a:b:c", astparser.Location{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, ok := astparser.ParseSrc(tt.src)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChildrenEvaluationOrder(t *testing.T) {
	// x = f(a)
	e := at.Assign(at.Ident("x", "uint256"), at.Call(at.Ident("f", "function (uint256)"), at.Ident("a", "uint256")))
	var order []string
	astparser.PostOrder(&e, func(n *astparser.Node) {
		if n.NodeType == "Identifier" {
			order = append(order, n.Name)
		}
	})
	assert.Equal(t, []string{"a", "f", "x"}, order)
}
