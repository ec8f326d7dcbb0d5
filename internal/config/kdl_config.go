package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// Load reads "<projectRoot>/.cuik.kdl" if present and returns the resulting
// Config. A missing file means "use defaults", not an error.
func Load(projectRoot string) (*Config, error) {
	path := filepath.Join(projectRoot, ".cuik.kdl")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return parseKDL(string(content))
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse .cuik.kdl: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "target":
			assignSimpleString(n, func(v string) { cfg.Target = v })
		case "system":
			assignSimpleString(n, func(v string) { cfg.System = v })
		case "thin_errors":
			if b, ok := firstBoolArg(n); ok {
				cfg.ThinErrors = b
			}
		case "include":
			cfg.Include = append(cfg.Include, collectStringArgs(n)...)
		case "define":
			if key, ok := firstStringArg(n); ok {
				value := ""
				if len(n.Arguments) > 1 {
					if s, ok := n.Arguments[1].Value.(string); ok {
						value = s
					}
				}
				cfg.Defines = append(cfg.Defines, Define{Key: key, Value: value})
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	b, ok := n.Arguments[0].Value.(bool)
	return b, ok
}

func assignSimpleString(n *document.Node, set func(string)) {
	if s, ok := firstStringArg(n); ok {
		set(s)
	}
}

// collectStringArgs gathers string values either from inline arguments
// ("include \"a\" \"b\"") or from child nodes in block form
// ("include { \"a\" \"b\" }").
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}

	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}
