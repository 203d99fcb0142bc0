package masters

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/tbmap/tbmap/internal/model"
)

//go:embed standard.yaml
var standardYAML []byte

var standard model.Masters

func init() {
	if err := yaml.Unmarshal(standardYAML, &standard); err != nil {
		panic(fmt.Sprintf("parsing embedded standard chart: %v", err))
	}
}

// Standard returns a fresh copy of the standard Schedule III chart.
func Standard() model.Masters {
	return standard.Clone()
}
