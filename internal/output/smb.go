package output

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/hirochachacha/go-smb2"

	"github.com/mkweon/searchlayer/internal/config"
)

// SMBHandler uploads documents to a SMB/CIFS network share.
type SMBHandler struct {
	server    string
	share     string
	username  string
	password  string
	directory string
}

// NewSMBHandler creates a new SMB archive handler.
func NewSMBHandler(cfg config.SMBConfig) *SMBHandler {
	return &SMBHandler{
		server:    cfg.Server,
		share:     cfg.Share,
		username:  cfg.Username,
		password:  cfg.Password,
		directory: cfg.Directory,
	}
}

func (h *SMBHandler) Name() string { return "smb" }

func (h *SMBHandler) Available() bool {
	return h.server != "" && h.share != ""
}

// Send uploads a document to the SMB share.
func (h *SMBHandler) Send(ctx context.Context, doc *Document) error {
	server := strings.TrimPrefix(h.server, "//")
	if !strings.Contains(server, ":") {
		server = server + ":445"
	}

	conn, err := net.DialTimeout("tcp", server, 10*time.Second)
	if err != nil {
		return fmt.Errorf("SMB connect: %w", err)
	}
	defer conn.Close()

	d := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     h.username,
			Password: h.password,
		},
	}

	session, err := d.DialContext(ctx, conn)
	if err != nil {
		return fmt.Errorf("SMB authenticate: %w", err)
	}
	defer session.Logoff()

	share, err := session.Mount(h.share)
	if err != nil {
		return fmt.Errorf("SMB mount share: %w", err)
	}
	defer share.Umount()

	if h.directory != "" {
		share.MkdirAll(h.directory, 0o755)
	}

	path := doc.Filename
	if h.directory != "" {
		path = h.directory + "/" + doc.Filename
	}

	f, err := share.Create(path)
	if err != nil {
		return fmt.Errorf("SMB create file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, doc.Reader); err != nil {
		return fmt.Errorf("SMB write: %w", err)
	}

	return nil
}
