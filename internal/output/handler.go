package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/mkweon/searchlayer/internal/config"
)

// Document is a finished searchable PDF on its way to an archive
// target.
type Document struct {
	Filename string
	Reader   io.Reader
	Size     int64
}

// Handler is the interface for all archive targets.
type Handler interface {
	Name() string
	Send(ctx context.Context, doc *Document) error
	Available() bool
}

// Manager routes documents to the appropriate archive handler.
type Manager struct {
	handlers map[string]Handler
}

// NewManager creates an archive manager from the server configuration.
func NewManager(cfg config.OutputConfig) *Manager {
	m := &Manager{
		handlers: make(map[string]Handler),
	}

	if cfg.SMB.Enabled {
		m.handlers["smb"] = NewSMBHandler(cfg.SMB)
	}

	// Filesystem is always available
	dir := cfg.Filesystem.Directory
	if dir == "" {
		dir = "/var/lib/searchlayer/documents"
	}
	m.handlers["filesystem"] = NewFilesystemHandler(dir)

	slog.Info("archive handlers initialized", "count", len(m.handlers))
	return m
}

// Send routes a document to the specified archive target.
func (m *Manager) Send(ctx context.Context, target string, doc *Document) error {
	handler, ok := m.handlers[target]
	if !ok {
		return fmt.Errorf("unknown archive target: %s", target)
	}

	slog.Info("archiving document",
		"target", target,
		"filename", doc.Filename,
		"size", doc.Size)

	if err := handler.Send(ctx, doc); err != nil {
		return fmt.Errorf("archive %s: %w", target, err)
	}

	slog.Info("document archived", "target", target)
	return nil
}
