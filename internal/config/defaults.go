package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// defaults returns the default configuration values keyed by viper path.
func defaults() map[string]any {
	return map[string]any{
		"api.host": "127.0.0.1",
		"api.port": "8080",

		"defra.url":            "http://localhost:9181",
		"defra.container_name": "paperly-defra",
		"defra.image":          "sourcenetwork/defradb:latest",
		"defra.host_port":      "9181",
		"defra.managed":        true,

		"s3.bucket":            "paperly",
		"s3.region":            "us-east-1",
		"s3.endpoint_url":      "",
		"s3.access_key_id":     "${AWS_ACCESS_KEY_ID}",
		"s3.secret_access_key": "${AWS_SECRET_ACCESS_KEY}",

		"openai.api_key":  "${OPENAI_API_KEY}",
		"openai.base_url": "",
		"openai.model":    "gpt-4o",

		"converter.command": "marker_convert",
		"converter.timeout": "10m",

		"workers.poll_interval": "5s",
		"workers.quiz_count":    3,
	}
}

// WriteDefault writes a commented default config file to path.
// Returns an error if the file already exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	tree := map[string]any{}
	for key, value := range defaults() {
		node := tree
		dir, leaf := splitKey(key)
		for _, part := range dir {
			child, ok := node[part].(map[string]any)
			if !ok {
				child = map[string]any{}
				node[part] = child
			}
			node = child
		}
		node[leaf] = value
	}

	data, err := yaml.Marshal(tree)
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func splitKey(key string) (dir []string, leaf string) {
	parts := []string{}
	start := 0
	for i := 0; i < len(key); i++ {
		if key[i] == '.' {
			parts = append(parts, key[start:i])
			start = i + 1
		}
	}
	parts = append(parts, key[start:])
	return parts[:len(parts)-1], parts[len(parts)-1]
}
