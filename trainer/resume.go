package trainer

import (
	"github.com/charmbracelet/log"

	"github.com/neurlang/fwlearn/model"
	"github.com/neurlang/fwlearn/persistence"
	"github.com/neurlang/fwlearn/regressor"
)

// Resume returns the regressor stored at path, or a fresh one when path is empty
func Resume(path string, mi *model.Instance, logger *log.Logger) (*regressor.Regressor, error) {
	if path == "" {
		return regressor.New(mi), nil
	}
	rr, err := persistence.LoadFile(path, mi)
	if err != nil {
		return nil, err
	}
	logger.Info("resumed regressor", "path", path, "hash_bits", rr.HashBits())
	return rr, nil
}

// Save writes rr to path unless path is empty
func Save(path string, rr *regressor.Regressor, mi *model.Instance, logger *log.Logger) error {
	if path == "" {
		return nil
	}
	if err := persistence.SaveFile(path, rr, mi); err != nil {
		return err
	}
	logger.Info("saved regressor", "path", path)
	return nil
}
