package helpers

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

const shortHashLength = 12

func SHA256(input string) string {
	return SHA256Bytes([]byte(input))
}

func SHA256Bytes(input []byte) string {
	hash := sha256.Sum256(input)
	return hex.EncodeToString(hash[:])
}

func SHA256Reader(reader io.Reader) (string, error) {
	hash := sha256.New()
	_, err := io.Copy(hash, reader)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// ShortHash returns a truncated content checksum, used to identify script
// modules and inline sources in logs.
func ShortHash(input []byte) string {
	return SHA256Bytes(input)[:shortHashLength]
}

// ShortHashReader is ShortHash over the contents of reader.
func ShortHashReader(reader io.Reader) (string, error) {
	sum, err := SHA256Reader(reader)
	if err != nil {
		return "", err
	}
	return sum[:shortHashLength], nil
}
