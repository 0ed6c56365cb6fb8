package loader

import (
	"github.com/Carmen-Shannon/oxy-ecs/engine/model"
)

// Importer converts a model file into meshes, skeleton, clips and materials.
// Implementations must be safe to call from several workers at once.
type Importer interface {
	// Import reads and converts the model file at path.
	//
	// Parameters:
	//   - path: the file path to load
	//
	// Returns:
	//   - *model.ImportedModel: the imported model data
	//   - error: error if loading fails
	Import(path string) (*model.ImportedModel, error)
}

// ImporterFunc adapts a function to the Importer interface.
type ImporterFunc func(path string) (*model.ImportedModel, error)

func (f ImporterFunc) Import(path string) (*model.ImportedModel, error) {
	return f(path)
}
