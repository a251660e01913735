package internal

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the data directory when set
const HomeEnv = "FALE_COM_DEUS_HOME"

const dataDirName = ".fale-com-deus"

// DataPaths holds the on-disk locations used by the app
type DataPaths struct {
	BaseDir    string // ~/.fale-com-deus or $FALE_COM_DEUS_HOME
	ConfigPath string // config.yaml inside BaseDir
	ExportDir  string // default export destination
}

// DetectDataPaths resolves the data directory for the current user
func DetectDataPaths() (DataPaths, error) {
	base := os.Getenv(HomeEnv)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DataPaths{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		base = filepath.Join(home, dataDirName)
	}

	return DataPaths{
		BaseDir:    base,
		ConfigPath: filepath.Join(base, "config.yaml"),
		ExportDir:  filepath.Join(base, "exports"),
	}, nil
}

// StoragePath returns the default store file for backend
func (dp DataPaths) StoragePath(backend string) string {
	switch backend {
	case BackendBolt:
		return filepath.Join(dp.BaseDir, "storage.bolt")
	case BackendMemory:
		return ""
	default:
		return filepath.Join(dp.BaseDir, "storage.db")
	}
}

// ConfigExists checks if the config file exists
func (dp DataPaths) ConfigExists() bool {
	_, err := os.Stat(dp.ConfigPath)
	return err == nil
}

// StorageExists checks if the store file for backend exists
func (dp DataPaths) StorageExists(backend string) bool {
	path := dp.StoragePath(backend)
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
