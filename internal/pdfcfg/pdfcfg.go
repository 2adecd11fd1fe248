// Package pdfcfg hands out pdfcpu configurations that never touch the user's
// pdfcpu config directory.
package pdfcfg

import (
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// Relaxed returns a configuration with relaxed validation, the mode that
// tolerates the small deviations most real-world PDFs carry.
func Relaxed() *model.Configuration {
	disableConfigDir.Do(api.DisableConfigDir)
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return cfg
}
