package astparser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrNoSources = errors.New("no solidity AST found")

// buildInfo 兼容 crytic-compile / foundry / hardhat 的 build-info 以及 solc standard-json 输出
type buildInfo struct {
	NodeType string `json:"nodeType"`
	Output   struct {
		Sources map[string]sourceEntry `json:"sources"`
	} `json:"output"`
	Sources map[string]sourceEntry `json:"sources"`
}

type sourceEntry struct {
	ID  int             `json:"id"`
	AST json.RawMessage `json:"ast"`
}

// LoadPath loads a single AST/build-info file, or every *.json below a directory.
func LoadPath(path string) ([]*ParsedSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("读取路径失败: %w", err)
	}
	if !info.IsDir() {
		sources, err := ParseFile(path)
		if err != nil {
			return nil, err
		}
		if len(sources) == 0 {
			return nil, fmt.Errorf("%s: %w", path, ErrNoSources)
		}
		return sources, nil
	}

	var all []*ParsedSource
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(p), ".json") {
			return nil
		}
		sources, err := ParseFile(p)
		if err != nil {
			return err
		}
		all = append(all, sources...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoSources)
	}
	return dedupe(all), nil
}

// ParseFile 解析一个 JSON 文件中的所有 SourceUnit
func ParseFile(filePath string) ([]*ParsedSource, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	sources, err := parseASTOutput(data, filePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	for _, s := range sources {
		s.Origins = []string{filePath}
	}
	return sources, nil
}

// parseASTOutput 解析 solc / build-info 输出
func parseASTOutput(output []byte, origin string) ([]*ParsedSource, error) {
	jsonStart := strings.Index(string(output), "{")
	if jsonStart == -1 {
		return nil, fmt.Errorf("无法在输出中找到 JSON")
	}
	content := output[jsonStart:]

	var head buildInfo
	if err := json.Unmarshal(content, &head); err != nil {
		// solc --ast-compact-json 会输出多段 "======= file =======" + JSON
		return parseCompactStream(output, origin)
	}

	if head.NodeType == "SourceUnit" {
		ps, err := newParsedSource(content, origin)
		if err != nil {
			return nil, err
		}
		return []*ParsedSource{ps}, nil
	}

	entries := head.Output.Sources
	if len(entries) == 0 {
		entries = head.Sources
	}
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	sources := make([]*ParsedSource, 0, len(paths))
	for _, p := range paths {
		raw := entries[p].AST
		if len(raw) == 0 {
			continue
		}
		ps, err := newParsedSource(raw, p)
		if err != nil {
			return nil, fmt.Errorf("source %s: %w", p, err)
		}
		sources = append(sources, ps)
	}
	return sources, nil
}

func parseCompactStream(output []byte, origin string) ([]*ParsedSource, error) {
	var sources []*ParsedSource
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{\"absolutePath\"") {
			continue
		}
		ps, err := newParsedSource([]byte(line), origin)
		if err != nil {
			return nil, err
		}
		sources = append(sources, ps)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("解析 AST JSON 失败")
	}
	return sources, nil
}

func newParsedSource(raw []byte, path string) (*ParsedSource, error) {
	var ast AST
	if err := json.Unmarshal(raw, &ast); err != nil {
		return nil, fmt.Errorf("解析 AST JSON 失败: %w", err)
	}
	if ast.AbsolutePath != "" {
		path = ast.AbsolutePath
	}
	return NewParsedSource(&ast, path, crypto.Keccak256Hash(raw)), nil
}

// NewParsedSource indexes an already decoded SourceUnit.
func NewParsedSource(ast *AST, path string, digest common.Hash) *ParsedSource {
	ps := &ParsedSource{
		AST:       ast,
		Path:      path,
		Digest:    digest,
		NodesByID: make(map[int]*Node),
	}
	for i := range ast.Nodes {
		Inspect(&ast.Nodes[i], func(n *Node) bool {
			if n.ID != 0 {
				ps.NodesByID[n.ID] = n
			}
			return true
		})
	}
	return ps
}

// dedupe 同一个 SourceUnit 可能出现在多个 build-info 中; the kept unit
// inherits the origins of its duplicates so ids still resolve from each.
func dedupe(sources []*ParsedSource) []*ParsedSource {
	type key struct {
		path   string
		digest common.Hash
	}
	seen := make(map[key]*ParsedSource, len(sources))
	out := make([]*ParsedSource, 0, len(sources))
	for _, s := range sources {
		k := key{s.Path, s.Digest}
		if kept, ok := seen[k]; ok {
			kept.Origins = append(kept.Origins, s.Origins...)
			continue
		}
		seen[k] = s
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Fingerprint hashes the digests of all sources in path order.
func Fingerprint(sources []*ParsedSource) common.Hash {
	digests := make([]string, 0, len(sources))
	for _, s := range sources {
		digests = append(digests, s.Path+"@"+s.Digest.Hex())
	}
	sort.Strings(digests)
	return crypto.Keccak256Hash([]byte(strings.Join(digests, "\n")))
}
