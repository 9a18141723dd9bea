package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/papercomputeco/docqa/pkg/vector"
	"github.com/papercomputeco/docqa/pkg/vector/chroma"
	"github.com/papercomputeco/docqa/pkg/vector/chromem"
	"github.com/papercomputeco/docqa/pkg/vector/inmemory"
	"github.com/papercomputeco/docqa/pkg/vector/postgres"
	"github.com/papercomputeco/docqa/pkg/vector/qdrant"
	"github.com/papercomputeco/docqa/pkg/vector/sqlite"
)

// Supported store providers.
const (
	ProviderSQLite   = "sqlite"
	ProviderMemory   = "memory"
	ProviderPostgres = "postgres"
	ProviderChroma   = "chroma"
	ProviderChromem  = "chromem"
	ProviderQdrant   = "qdrant"
)

// Providers lists every supported store provider.
func Providers() []string {
	return []string{ProviderChroma, ProviderChromem, ProviderMemory, ProviderPostgres, ProviderQdrant, ProviderSQLite}
}

type NewStoreOpts struct {
	ProviderType string

	// Target is the provider's location: a file path for sqlite, a
	// directory for chromem, a connection string for postgres, a URL for
	// chroma and host:port for qdrant.
	Target string

	// Collection names the collection or table, where the provider has one.
	Collection string

	// APIKey authenticates to qdrant.
	APIKey string

	Logger *slog.Logger
}

// NewStore opens the configured index store. An empty provider means sqlite.
func NewStore(ctx context.Context, o *NewStoreOpts) (vector.Store, error) {
	switch o.ProviderType {
	case "", ProviderSQLite:
		return sqlite.NewStore(sqlite.Config{DBPath: o.Target}, o.Logger)
	case ProviderMemory:
		return inmemory.NewStore(), nil
	case ProviderPostgres:
		return postgres.NewStore(ctx, postgres.Config{ConnString: o.Target, Table: o.Collection}, o.Logger)
	case ProviderChroma:
		return chroma.NewStore(ctx, chroma.Config{URL: o.Target, CollectionName: o.Collection}, o.Logger)
	case ProviderChromem:
		return chromem.NewStore(chromem.Config{Path: o.Target, CollectionName: o.Collection}, o.Logger)
	case ProviderQdrant:
		host, port, err := splitHostPort(o.Target)
		if err != nil {
			return nil, err
		}
		return qdrant.NewStore(qdrant.Config{
			Host:           host,
			Port:           port,
			APIKey:         o.APIKey,
			CollectionName: o.Collection,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func splitHostPort(target string) (string, int, error) {
	if target == "" {
		return "", 0, fmt.Errorf("qdrant target is required")
	}
	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// bare host
		return target, qdrant.DefaultPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}
