// Package mongo implements ports.Backend on top of the official MongoDB
// driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/bft-labs/mongoship/internal/domain"
	"github.com/bft-labs/mongoship/internal/ports"
)

// Server error codes.
const (
	codeInvalidBSON             = 22
	codeNamespaceExists         = 48
	codeDollarPrefixedFieldName = 52
	codeDottedFieldName         = 57
)

// Options holds connection settings.
type Options struct {
	// URI overrides Host and Port when set.
	URI  string
	Host string
	Port int

	Database   string
	User       string
	Password   string
	AuthSource string

	ConnectTimeout time.Duration
}

// ClientOptions builds driver options from o.
func (o Options) ClientOptions() *options.ClientOptions {
	uri := o.URI
	if uri == "" {
		uri = "mongodb://" + net.JoinHostPort(o.Host, strconv.Itoa(o.Port))
	}
	opts := options.Client().ApplyURI(uri)
	if o.ConnectTimeout > 0 {
		opts.SetConnectTimeout(o.ConnectTimeout)
		opts.SetServerSelectionTimeout(o.ConnectTimeout)
	}
	if o.User != "" {
		opts.SetAuth(options.Credential{
			Username:   o.User,
			Password:   o.Password,
			AuthSource: o.AuthSource,
		})
	}
	return opts
}

// Backend implements ports.Backend for one database.
type Backend struct {
	client *mongo.Client
	db     *mongo.Database
	logger ports.Logger
}

var _ ports.Backend = (*Backend)(nil)

// Connect opens a client and verifies the server is reachable.
func Connect(ctx context.Context, o Options, logger ports.Logger) (*Backend, error) {
	client, err := mongo.Connect(ctx, o.ClientOptions())
	if err != nil {
		return nil, fmt.Errorf("%w: connect: %v", domain.ErrBackendUnavailable, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", domain.ErrBackendUnavailable, err)
	}

	logger.Info("connected to mongodb", ports.String("database", o.Database))
	return &Backend{
		client: client,
		db:     client.Database(o.Database),
		logger: logger,
	}, nil
}

func (b *Backend) FindCollection(ctx context.Context, name string) (ports.CollectionInfo, bool, error) {
	specs, err := b.db.ListCollectionSpecifications(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return ports.CollectionInfo{}, false, fmt.Errorf("list collections: %w", err)
	}
	for _, s := range specs {
		if s.Name != name {
			continue
		}
		info := ports.CollectionInfo{Name: s.Name}
		if s.Options != nil {
			info.Capped, _ = s.Options.Lookup("capped").BooleanOK()
		}
		return info, true, nil
	}
	return ports.CollectionInfo{}, false, nil
}

func (b *Backend) CreateCollection(ctx context.Context, name string, args domain.CreationArguments) error {
	err := b.db.CreateCollection(ctx, name, createOptions(args))
	if isServerCode(err, codeNamespaceExists) {
		// Another writer created it first.
		b.logger.Debug("collection already exists", ports.String("collection", name))
		return nil
	}
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	return nil
}

func createOptions(args domain.CreationArguments) *options.CreateCollectionOptions {
	opts := options.CreateCollection()
	if !args.Capped {
		return opts
	}
	opts.SetCapped(true).SetSizeInBytes(args.Size)
	if args.MaxEntries > 0 {
		opts.SetMaxDocuments(args.MaxEntries)
	}
	return opts
}

func (b *Backend) Collection(name string) ports.Collection {
	return &Collection{coll: b.db.Collection(name)}
}

func (b *Backend) ServerVersion(ctx context.Context) (string, error) {
	var info struct {
		Version string `bson:"version"`
	}
	err := b.client.Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&info)
	if err != nil {
		return "", fmt.Errorf("buildInfo: %w", err)
	}
	return info.Version, nil
}

func (b *Backend) Close(ctx context.Context) error {
	if err := b.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}

// Collection implements ports.Collection.
type Collection struct {
	coll *mongo.Collection
}

func (c *Collection) Name() string { return c.coll.Name() }

// InsertMany converts and inserts records in one ordered bulk call.
func (c *Collection) InsertMany(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs, err := toDocuments(records)
	if err != nil {
		return err
	}
	if _, err := c.coll.InsertMany(ctx, docs); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps server rejections of document content to domain encoding
// errors and connectivity failures to ErrBackendUnavailable.
func classify(err error) error {
	switch {
	case isServerCode(err, codeDollarPrefixedFieldName), isServerCode(err, codeDottedFieldName):
		return &domain.EncodingError{Reason: domain.InvalidKey, Detail: err.Error()}
	case isServerCode(err, codeInvalidBSON):
		return &domain.EncodingError{Reason: domain.InvalidString, Detail: err.Error()}
	case mongo.IsNetworkError(err), mongo.IsTimeout(err):
		return fmt.Errorf("%w: insert: %v", domain.ErrBackendUnavailable, err)
	default:
		return fmt.Errorf("insert: %w", err)
	}
}

func isServerCode(err error, code int) bool {
	var se mongo.ServerError
	return errors.As(err, &se) && se.HasErrorCode(code)
}
