package vectorutils

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/papercomputeco/vakki/pkg/vector"
	"github.com/papercomputeco/vakki/pkg/vector/chroma"
	"github.com/papercomputeco/vakki/pkg/vector/inmemory"
	"github.com/papercomputeco/vakki/pkg/vector/pgvector"
	"github.com/papercomputeco/vakki/pkg/vector/qdrant"
	"github.com/papercomputeco/vakki/pkg/vector/sqlitevec"
)

type NewVectorDriverOpts struct {
	ProviderType string
	Target       string
	Collection   string
	Dimensions   uint
	Logger       *slog.Logger
}

// NewVectorDriver builds the vector.Driver named by ProviderType.
func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case "sqlite":
		if o.Target == "" {
			return nil, errors.New("sqlite vector store needs a database path (vector_store.target)")
		}
		return sqlitevec.NewSQLiteVecDriver(sqlitevec.Config{
			DBPath:     o.Target,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case "chroma":
		return chroma.NewDriver(chroma.Config{
			URL:            o.Target,
			CollectionName: o.Collection,
			MaxRetries:     5,
		}, o.Logger)

	case "qdrant":
		return qdrant.NewDriver(ctx, qdrant.Config{
			Target:         o.Target,
			APIKey:         os.Getenv("QDRANT_API_KEY"),
			UseTLS:         os.Getenv("QDRANT_API_KEY") != "",
			CollectionName: o.Collection,
			Dimensions:     o.Dimensions,
		}, o.Logger)

	case "pgvector":
		return pgvector.NewDriver(ctx, pgvector.Config{
			DSN:        o.Target,
			TableName:  o.Collection,
			Dimensions: o.Dimensions,
		}, o.Logger)

	case "memory":
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}
