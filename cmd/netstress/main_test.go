package main

import (
	"os"
	"testing"

	"github.com/ovral/netstress/internal/config"
)

func TestPromptWriterKeepsJSONStreamClean(t *testing.T) {
	if w := promptWriter(&config.Config{JSONOutput: true}); w != os.Stderr {
		t.Fatalf("json output: prompt should go to stderr, got %v", w)
	}
	if w := promptWriter(&config.Config{}); w != os.Stdout {
		t.Fatalf("text output: prompt should go to stdout, got %v", w)
	}
}
