package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	RootDir       string
	PublicBaseURL string
}

// remoteFS is the subset of *sftp.Client the store uses.
type remoteFS interface {
	MkdirAll(dir string) error
	Create(name string) (io.WriteCloser, error)
	Remove(name string) error
	Close() error
}

type sftpSession struct {
	client *sftp.Client
	conn   *ssh.Client
}

func (s *sftpSession) MkdirAll(dir string) error { return s.client.MkdirAll(dir) }
func (s *sftpSession) Remove(name string) error { return s.client.Remove(name) }
func (s *sftpSession) Create(name string) (io.WriteCloser, error) {
	return s.client.Create(name)
}

func (s *sftpSession) Close() error {
	_ = s.client.Close()
	return s.conn.Close()
}

var dialSFTP = func(cfg SFTPConfig) (remoteFS, error) {
	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Pass)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         30 * time.Second,
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("sftp dial: %w", err)
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("sftp client: %w", err)
	}
	return &sftpSession{client: client, conn: conn}, nil
}

// SFTPStore writes photos below RootDir on an SFTP host that also serves
// them over HTTP at PublicBaseURL. One connection per operation.
type SFTPStore struct {
	cfg SFTPConfig
}

func NewSFTPStore(cfg SFTPConfig) *SFTPStore {
	return &SFTPStore{cfg: cfg}
}

func (s *SFTPStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	fs, err := dialSFTP(s.cfg)
	if err != nil {
		return err
	}
	defer fs.Close()

	full := path.Join(s.cfg.RootDir, key)
	if err := fs.MkdirAll(path.Dir(full)); err != nil {
		return fmt.Errorf("sftp mkdir: %w", err)
	}
	f, err := fs.Create(full)
	if err != nil {
		return fmt.Errorf("sftp create %s: %w", key, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return fmt.Errorf("sftp write %s: %w", key, err)
	}
	return f.Close()
}

func (s *SFTPStore) Remove(ctx context.Context, key string) error {
	fs, err := dialSFTP(s.cfg)
	if err != nil {
		return err
	}
	defer fs.Close()

	if err := fs.Remove(path.Join(s.cfg.RootDir, key)); err != nil {
		return fmt.Errorf("sftp remove %s: %w", key, err)
	}
	return nil
}

func (s *SFTPStore) URL(ctx context.Context, key string) (string, error) {
	return joinURL(s.cfg.PublicBaseURL, key), nil
}
