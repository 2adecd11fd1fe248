package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_InvalidLogSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown level", map[string]string{"PDFTOOL_LOG_LEVEL": "verbose"}, "log.level"},
		{"unknown format", map[string]string{"PDFTOOL_LOG_FORMAT": "xml"}, "log.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			ext, err := setup(context.Background())
			require.Error(t, err)
			assert.Nil(t, ext)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
