// Package storepath resolves where a local index store keeps its data.
package storepath

import (
	"github.com/papercomputeco/docqa/pkg/dotdir"
	"github.com/papercomputeco/docqa/pkg/vector/sqlite"
	vectorutils "github.com/papercomputeco/docqa/pkg/vector/utils"
)

// ChromemDir is the chromem-go persistence directory inside the dot directory.
const ChromemDir = "chromem"

// Resolve returns the store target for provider. An explicit target always
// wins. File-backed providers default into the .docqa/ directory chosen by
// configDir; remote providers keep whatever was configured.
func Resolve(provider, target, configDir string) (string, error) {
	if target != "" {
		return target, nil
	}

	switch provider {
	case "", vectorutils.ProviderSQLite:
		return dotdir.NewManager().Path(configDir, sqlite.DefaultFileName)
	case vectorutils.ProviderChromem:
		return dotdir.NewManager().Path(configDir, ChromemDir)
	default:
		return target, nil
	}
}
