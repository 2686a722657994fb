package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/defluff/internal/log"
)

// Field names a top-level key Save can write.
type Field string

// Fields written by Save.
const (
	FieldEnabled        Field = "enabled"
	FieldHighlightStyle Field = "highlight_style"
	FieldLanguage       Field = "language"
	FieldCategories     Field = "categories"
	FieldCustomWordList Field = "custom_word_list"
)

// allFields are the user-editable keys, in file order.
var allFields = []Field{FieldEnabled, FieldHighlightStyle, FieldLanguage, FieldCategories, FieldCustomWordList}

// Save writes the given fields of s into the config file at configPath, or
// every user-editable field when none are given. Other keys, comments and
// formatting are preserved by editing the yaml.Node tree; tracing is left as
// the user wrote it.
func Save(configPath string, s Settings, fields ...Field) error {
	if len(fields) == 0 {
		fields = allFields
	}

	data, err := os.ReadFile(configPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config: %w", err)
	}

	// Parse into yaml.Node to preserve comments
	var doc yaml.Node
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	if doc.Kind == 0 {
		doc = yaml.Node{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode}},
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("parsing config: top level must be a mapping")
	}
	root := doc.Content[0]

	for _, f := range fields {
		var value *yaml.Node
		switch f {
		case FieldEnabled:
			value = boolNode(s.Enabled)
		case FieldHighlightStyle:
			value = stringNode(string(s.HighlightStyle))
		case FieldLanguage:
			value = stringNode(string(s.Language))
		case FieldCategories:
			value = categoriesNode(s.Categories)
		case FieldCustomWordList:
			value = wordListNode(s.CustomWordList)
		default:
			return fmt.Errorf("saving config: unknown field %q", f)
		}
		setKey(root, string(f), value)
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&doc); err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_ = encoder.Close()

	if err := writeAtomic(configPath, buf.Bytes()); err != nil {
		return err
	}
	log.Debug(log.CatConfig, "Saved settings", "path", configPath, "fields", len(fields))
	return nil
}

// writeAtomic writes to a temp file in the target directory, then renames it.
func writeAtomic(configPath string, data []byte) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, ".defluff.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// setKey replaces the value for key in a mapping node, or appends the pair.
// A replaced key keeps its comments.
func setKey(mapping *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i < len(mapping.Content)-1; i += 2 {
		if mapping.Content[i].Value == key {
			old := mapping.Content[i+1]
			value.LineComment = old.LineComment
			if old.Kind == yaml.MappingNode && value.Kind == yaml.MappingNode {
				mergeComments(old, value)
			}
			mapping.Content[i+1] = value
			return
		}
	}
	mapping.Content = append(mapping.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value,
	)
}

// mergeComments carries line comments of nested keys over to the new mapping.
func mergeComments(old, updated *yaml.Node) {
	comments := make(map[string]string)
	for i := 0; i < len(old.Content)-1; i += 2 {
		if c := old.Content[i+1].LineComment; c != "" {
			comments[old.Content[i].Value] = c
		}
	}
	for i := 0; i < len(updated.Content)-1; i += 2 {
		if c, ok := comments[updated.Content[i].Value]; ok {
			updated.Content[i+1].LineComment = c
		}
	}
}

func boolNode(v bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
}

func stringNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// wordListNode uses a literal block for multi-line lists so they stay readable.
func wordListNode(v string) *yaml.Node {
	n := stringNode(v)
	if strings.Contains(v, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}

func categoriesNode(t CategoryToggles) *yaml.Node {
	pairs := []struct {
		key string
		on  bool
	}{
		{"weak_qualifier", t.WeakQualifier},
		{"filler_word", t.FillerWord},
		{"weasel_word", t.WeaselWord},
		{"jargon", t.Jargon},
		{"complexity", t.Complexity},
		{"redundancy", t.Redundancy},
	}

	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, p := range pairs {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: p.key},
			boolNode(p.on),
		)
	}
	return node
}
