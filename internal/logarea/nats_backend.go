package logarea

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/testrunner/internal/config"
	rerrors "git.home.luguber.info/inful/testrunner/internal/errors"
	"git.home.luguber.info/inful/testrunner/internal/logfields"
)

// NATSBackend stores uploads in a JetStream object store bucket under
// <run id>/<kind>/<name>.
type NATSBackend struct {
	conn  *nats.Conn
	store jetstream.ObjectStore
	cfg   config.NATSBackendConfig
}

// NewNATSBackend connects to NATS and opens the bucket, creating it if needed.
func NewNATSBackend(ctx context.Context, cfg config.NATSBackendConfig) (*NATSBackend, error) {
	if cfg.URL == "" {
		return nil, rerrors.ValidationFailed("log_area.nats.url", "is required")
	}
	if cfg.Bucket == "" {
		return nil, rerrors.ValidationFailed("log_area.nats.bucket", "is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = config.DefaultNATSTimeout
	}

	conn, err := nats.Connect(cfg.URL, nats.Name("testrunner"), nats.Timeout(cfg.Timeout))
	if err != nil {
		return nil, rerrors.Wrap(err, rerrors.CategoryCollaborator, rerrors.SeverityFatal, "failed to connect to NATS").
			WithContext("url", cfg.URL)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, rerrors.Wrap(err, rerrors.CategoryCollaborator, rerrors.SeverityFatal, "failed to create JetStream context")
	}

	store, err := openObjectStore(ctx, js, cfg)
	if err != nil {
		conn.Close()
		return nil, rerrors.Wrap(err, rerrors.CategoryCollaborator, rerrors.SeverityFatal, "failed to open object store").
			WithContext("bucket", cfg.Bucket)
	}

	slog.Info("NATS log area initialized", logfields.URL(cfg.URL), slog.String("bucket", cfg.Bucket))
	return &NATSBackend{conn: conn, store: store, cfg: cfg}, nil
}

func openObjectStore(ctx context.Context, js jetstream.JetStream, cfg config.NATSBackendConfig) (jetstream.ObjectStore, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	store, err := js.ObjectStore(ctx, cfg.Bucket)
	if err == nil {
		return store, nil
	}
	if !errors.Is(err, jetstream.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Bucket,
		Description: "Test run logs and artifacts",
	})
}

func (b *NATSBackend) Name() string { return "nats" }

func (b *NATSBackend) Upload(ctx context.Context, u Upload) error {
	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()

	meta := jetstream.ObjectMeta{
		Name: objectName(u),
		Metadata: map[string]string{
			"run_id": u.RunID,
			"kind":   string(u.Kind),
			"name":   u.Name,
		},
	}
	if _, err := b.store.Put(ctx, meta, u.Body); err != nil {
		if b.conn.IsClosed() {
			return rerrors.UploadFailed(string(u.Kind), fmt.Errorf("connection closed: %w", err))
		}
		return rerrors.UploadTransient(string(u.Kind), err)
	}
	return nil
}

func (b *NATSBackend) Close() error {
	return b.conn.Drain()
}

func objectName(u Upload) string {
	return path.Join(u.RunID, string(u.Kind), u.Name)
}
