// Package rewrite provides utilities for rewriting structured files while preserving formatting.
// It includes functions for targeted YAML field updates and unified diff generation,
// enabling integrations to update configuration files without destroying formatting or comments.
package rewrite

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UpdateYAMLField updates a specific field in a YAML document.
func UpdateYAMLField(content string, path []string, newValue string) (string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(content), &root); err != nil {
		return "", fmt.Errorf("parse YAML: %w", err)
	}

	if err := setYAMLField(&root, path, 0, newValue); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(&root); err != nil {
		return "", fmt.Errorf("encode YAML: %w", err)
	}

	return buf.String(), nil
}

// setYAMLField sets a field value at the specified path.
func setYAMLField(node *yaml.Node, path []string, depth int, value string) error {
	if node == nil || depth >= len(path) {
		return fmt.Errorf("path not found")
	}

	currentKey := path[depth]

	switch node.Kind {
	case yaml.DocumentNode:
		for _, child := range node.Content {
			if err := setYAMLField(child, path, depth, value); err == nil {
				return nil
			}
		}

	case yaml.MappingNode:
		for i := 0; i < len(node.Content); i += 2 {
			keyNode := node.Content[i]
			valueNode := node.Content[i+1]

			if keyNode.Value == currentKey {
				if depth == len(path)-1 {
					valueNode.Value = value
					return nil
				}
				return setYAMLField(valueNode, path, depth+1, value)
			}
		}
	}

	return fmt.Errorf("key %q not found", currentKey)
}
