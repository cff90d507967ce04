package target

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestReadLines(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		file string
		body string
		want []string
	}{
		{"text", "list.txt", "out/A.json\n\n# comment\n// note\n  out/B.json  \nout/A.json\n", []string{"out/A.json", "out/B.json"}},
		{"yaml_list", "list.yaml", "- out/A.json\n- out/B.json\n- out/A.json\n", []string{"out/A.json", "out/B.json"}},
		{"yaml_targets", "targets.yml", "targets:\n  - out/A.json\n", []string{"out/A.json"}},
		{"yaml_paths", "paths.yaml", "paths: [out/C.json]\n", []string{"out/C.json"}},
		{"case_sensitive", "case.txt", "Out/A.json\nout/A.json\n", []string{"Out/A.json", "out/A.json"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLines(writeFile(t, dir, tt.file, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ReadLines(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "out/A.json", "{}")
	writeFile(t, dir, "out/B.json", "{}")
	list := writeFile(t, dir, "targets.txt", "out/B.json\n"+a+"\n")

	got, err := Resolve([]string{a}, list)
	require.NoError(t, err)
	assert.Equal(t, []string{a, filepath.Join(dir, "out/B.json")}, got)

	_, err = Resolve(nil, "")
	assert.ErrorContains(t, err, "no targets")

	_, err = Resolve([]string{filepath.Join(dir, "nope.json")}, "")
	assert.Error(t, err)

	_, err = Resolve(nil, filepath.Join(dir, "missing.txt"))
	assert.ErrorContains(t, err, "read target list")
}

func TestIsLibraryPath(t *testing.T) {
	tests := map[string]bool{
		"node_modules/@openzeppelin/contracts/token/ERC20.sol": true,
		"lib/forge-std/src/Test.sol":                           true,
		"lib/solmate/src/tokens/ERC20.sol":                     true,
		"test/Vault.t.sol":                                     true,
		"src/mock/MockToken.sol":                               true,
		"src/Vault.sol":                                        false,
		"contracts/Bank.sol":                                   false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsLibraryPath(path), path)
	}
}
