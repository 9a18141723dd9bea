// Package qdrant provides a vector.Store backed by a Qdrant server over gRPC.
package qdrant

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/papercomputeco/docqa/pkg/vector"
)

const (
	// DefaultCollectionName is the alias readers resolve to the live index.
	DefaultCollectionName = "docqa"

	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	upsertBatchSize = 256
	scrollPageSize  = 512
)

// Config holds configuration for the Qdrant store.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// CollectionName defaults to DefaultCollectionName.
	CollectionName string

	// Target overrides Host and Port with a full gRPC target.
	Target string

	// DialOptions are appended to the options the store dials with.
	DialOptions []grpc.DialOption
}

// Store implements vector.Store on Qdrant. Each Save writes a new
// collection and then atomically points the alias at it.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	alias       string
	logger      *slog.Logger
}

var _ vector.Store = (*Store)(nil)

// NewStore creates a Qdrant-backed store. The connection is established lazily.
func NewStore(c Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if c.CollectionName == "" {
		c.CollectionName = DefaultCollectionName
	}

	target := c.Target
	if target == "" {
		if c.Host == "" {
			return nil, fmt.Errorf("qdrant host is required")
		}
		if c.Port == 0 {
			c.Port = DefaultPort
		}
		target = fmt.Sprintf("%s:%d", c.Host, c.Port)
	}

	creds := insecure.NewCredentials()
	if c.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if c.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(c.APIKey)))
	}
	opts = append(opts, c.DialOptions...)

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: qdrant connect: %w", vector.ErrConnection, err)
	}

	logger.Debug("qdrant index store configured", "target", target, "collection", c.CollectionName)

	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		alias:       c.CollectionName,
		logger:      logger,
	}, nil
}

// Save writes ix to a fresh collection, swaps the alias over and drops the
// collections the alias pointed at before.
func (s *Store) Save(ctx context.Context, ix *vector.Index) error {
	name := fmt.Sprintf("%s-%d", s.alias, time.Now().UnixNano())
	size := max(ix.Dim(), 1)

	_, err := s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(size), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return wrap("creating collection "+name, err)
	}

	if err := s.upsert(ctx, name, vector.Records(ix)); err != nil {
		s.drop(ctx, name)
		return err
	}

	previous, err := s.target(ctx)
	if err != nil {
		s.drop(ctx, name)
		return err
	}

	var actions []*pb.AliasOperations
	if previous != "" {
		actions = append(actions, &pb.AliasOperations{Action: &pb.AliasOperations_DeleteAlias{
			DeleteAlias: &pb.DeleteAlias{AliasName: s.alias},
		}})
	}
	actions = append(actions, &pb.AliasOperations{Action: &pb.AliasOperations_CreateAlias{
		CreateAlias: &pb.CreateAlias{CollectionName: name, AliasName: s.alias},
	}})
	if _, err := s.collections.UpdateAliases(ctx, &pb.ChangeAliases{Actions: actions}); err != nil {
		s.drop(ctx, name)
		return wrap("switching alias", err)
	}

	if previous != "" {
		s.drop(ctx, previous)
	}

	s.logger.Debug("saved index to qdrant", "collection", name, "entries", ix.Len())
	return nil
}

// Load scrolls the collection behind the alias. No alias is an empty index.
func (s *Store) Load(ctx context.Context) (*vector.Index, error) {
	current, err := s.target(ctx)
	if err != nil {
		return nil, err
	}
	if current == "" {
		return vector.Empty(), nil
	}

	var (
		recs   []vector.Record
		offset *pb.PointId
		limit  = uint32(scrollPageSize)
	)
	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: current,
			Offset:         offset,
			Limit:          &limit,
			WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
		})
		if err != nil {
			return nil, wrap("scrolling points", err)
		}

		for _, pt := range resp.GetResult() {
			r, err := fromPoint(pt)
			if err != nil {
				return nil, err
			}
			recs = append(recs, r)
		}

		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	return vector.FromRecords(recs)
}

// Close closes the gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// target returns the collection the alias points at, or "".
func (s *Store) target(ctx context.Context) (string, error) {
	resp, err := s.collections.ListAliases(ctx, &pb.ListAliasesRequest{})
	if err != nil {
		return "", wrap("listing aliases", err)
	}
	for _, a := range resp.GetAliases() {
		if a.GetAliasName() == s.alias {
			return a.GetCollectionName(), nil
		}
	}
	return "", nil
}

func (s *Store) upsert(ctx context.Context, collection string, recs []vector.Record) error {
	wait := true
	for start := 0; start < len(recs); start += upsertBatchSize {
		batch := recs[start:min(start+upsertBatchSize, len(recs))]

		points := make([]*pb.PointStruct, len(batch))
		for i, r := range batch {
			pt, err := toPoint(r)
			if err != nil {
				return err
			}
			points[i] = pt
		}

		if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
			CollectionName: collection,
			Wait:           &wait,
			Points:         points,
		}); err != nil {
			return wrap(fmt.Sprintf("upserting points %d-%d", start, start+len(batch)-1), err)
		}
	}
	return nil
}

func (s *Store) drop(ctx context.Context, name string) {
	if _, err := s.collections.Delete(ctx, &pb.DeleteCollection{CollectionName: name}); err != nil {
		s.logger.Warn("failed to drop qdrant collection", "collection", name, "error", err)
	}
}

// wrap marks transport failures as connection errors.
func wrap(what string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s: %w", vector.ErrConnection, what, err)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

func str(v string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}}
}

func toPoint(r vector.Record) (*pb.PointStruct, error) {
	meta, err := vector.EncodeMetadata(r.Metadata)
	if err != nil {
		return nil, err
	}

	// Qdrant normalizes cosine vectors and rejects all-zero ones; the exact
	// vector is kept in the payload.
	data := slices.Clone(r.Vector)
	if !slices.ContainsFunc(data, func(f float32) bool { return f != 0 }) {
		data[0] = 1
	}

	return &pb.PointStruct{
		Id:      &pb.PointId{PointIdOptions: &pb.PointId_Num{Num: uint64(r.Position)}},
		Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: data}}},
		Payload: map[string]*pb.Value{
			"document_id": str(r.DocumentID),
			"text":        str(r.Text),
			"seq":         str(strconv.Itoa(r.Seq)),
			"start":       str(strconv.Itoa(r.Start)),
			"end":         str(strconv.Itoa(r.End)),
			"overlap":     str(strconv.Itoa(r.Overlap)),
			"metadata":    str(meta),
			"vector":      str(base64.StdEncoding.EncodeToString(vector.EncodeVector(r.Vector))),
		},
	}, nil
}

func fromPoint(pt *pb.RetrievedPoint) (vector.Record, error) {
	p := pt.GetPayload()
	get := func(k string) string { return p[k].GetStringValue() }

	r := vector.Record{
		Position:   int(pt.GetId().GetNum()),
		DocumentID: get("document_id"),
		Text:       get("text"),
	}

	var errs []string
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"seq", &r.Seq},
		{"start", &r.Start},
		{"end", &r.End},
		{"overlap", &r.Overlap},
	} {
		v, err := strconv.Atoi(get(f.key))
		if err != nil {
			errs = append(errs, f.key)
			continue
		}
		*f.dst = v
	}
	if len(errs) > 0 {
		return r, fmt.Errorf("%w: point %d has invalid %s", vector.ErrCorrupt, r.Position, strings.Join(errs, ", "))
	}

	var err error
	if r.Metadata, err = vector.DecodeMetadata(get("metadata")); err != nil {
		return r, err
	}
	blob, err := base64.StdEncoding.DecodeString(get("vector"))
	if err != nil {
		return r, errors.Join(vector.ErrCorrupt, err)
	}
	if r.Vector, err = vector.DecodeVector(blob); err != nil {
		return r, err
	}
	return r, nil
}
