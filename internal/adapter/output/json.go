package output

import (
	"encoding/json"
	"io"

	"github.com/jmylchreest/notiwin/internal/config"
)

// JSONFormatter writes indented JSON keyed by Go field names.
type JSONFormatter struct{}

func (JSONFormatter) Format(w io.Writer, cfg *config.Config) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}
