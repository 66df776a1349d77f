package manifest

import (
	"bytes"
	"fmt"
	"io"
	"net/textproto"
	"os"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/pkg/errors"
)

// FileSystem where manifests are read from
type FileSystem interface {
	Exists(fileName string) (bool, error)
	Open(fileName string) (io.ReadCloser, error)
}

// LocalFileSystem reads files relative to Dir, or the working directory when Dir is empty
type LocalFileSystem struct {
	Dir string
}

func (fs *LocalFileSystem) path(fileName string) string {
	if fs.Dir == "" || filepath.IsAbs(fileName) {
		return fileName
	}
	return filepath.Join(fs.Dir, fileName)
}

func (fs *LocalFileSystem) Exists(fileName string) (bool, error) {
	_, err := os.Stat(fs.path(fileName))
	if err != nil && os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (fs *LocalFileSystem) Open(fileName string) (io.ReadCloser, error) {
	return os.Open(fs.path(fileName))
}

// FTPFileSystem reads files from an FTP server, one connection per call
type FTPFileSystem struct {
	Host        string
	Port        int
	User        string
	Password    string
	ConnTimeout time.Duration
}

func (fs *FTPFileSystem) String() string {
	return fmt.Sprintf("ftp://%s@%s:%d", fs.User, fs.Host, fs.Port)
}

func (fs *FTPFileSystem) connect() (*ftp.ServerConn, error) {
	c, err := ftp.Dial(fmt.Sprintf("%s:%d", fs.Host, fs.Port), ftp.DialWithTimeout(fs.ConnTimeout))
	if err != nil {
		return nil, errors.Wrapf(err, "connect %v failed", fs)
	}
	if err = c.Login(fs.User, fs.Password); err != nil {
		_ = c.Quit()
		return nil, errors.Wrapf(err, "login %v failed", fs)
	}
	return c, nil
}

func (fs *FTPFileSystem) Exists(fileName string) (bool, error) {
	c, err := fs.connect()
	if err != nil {
		return false, err
	}
	defer c.Quit()

	_, err = c.FileSize(fileName)
	if err == nil {
		return true, nil
	}
	var te *textproto.Error
	if errors.As(err, &te) && te.Code == ftp.StatusFileUnavailable {
		return false, nil
	}
	return false, err
}

// Open download the whole file before the connection is closed
func (fs *FTPFileSystem) Open(fileName string) (io.ReadCloser, error) {
	c, err := fs.connect()
	if err != nil {
		return nil, err
	}
	defer c.Quit()

	r, err := c.Retr(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "retrieve %v failed", fileName)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "read %v failed", fileName)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
