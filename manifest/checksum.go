package manifest

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// ErrChecksumMismatch the manifest does not match the digest of its .md5 file
var ErrChecksumMismatch = errors.New("manifest checksum mismatch")

// VerifyMD5 compare the md5 digest of fileName with the first token of fileName.md5.
// A manifest without a .md5 file is accepted.
func VerifyMD5(fs FileSystem, fileName string) error {
	checkFile := fileName + ".md5"
	ok, err := fs.Exists(checkFile)
	if err != nil {
		return errors.Wrapf(err, "check %v failed", checkFile)
	}
	if !ok {
		return nil
	}
	expected, err := readDigest(fs, checkFile)
	if err != nil {
		return err
	}
	reader, err := fs.Open(fileName)
	if err != nil {
		return errors.Wrapf(err, "open %v failed", fileName)
	}
	defer reader.Close()
	h := md5.New()
	if _, err = io.Copy(h, bufio.NewReader(reader)); err != nil {
		return errors.Wrapf(err, "digest %v failed", fileName)
	}
	if actual := hex.EncodeToString(h.Sum(nil)); !strings.EqualFold(actual, expected) {
		return errors.Wrapf(ErrChecksumMismatch, "%v, expected:%v, actual:%v", fileName, expected, actual)
	}
	return nil
}

func readDigest(fs FileSystem, checkFile string) (string, error) {
	reader, err := fs.Open(checkFile)
	if err != nil {
		return "", errors.Wrapf(err, "open %v failed", checkFile)
	}
	defer reader.Close()
	content, err := io.ReadAll(reader)
	if err != nil {
		return "", errors.Wrapf(err, "read %v failed", checkFile)
	}
	fields := strings.Fields(string(content))
	if len(fields) == 0 {
		return "", errors.Errorf("%v is empty", checkFile)
	}
	return fields[0], nil
}
