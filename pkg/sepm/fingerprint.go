package sepm

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	metadataEntry         = "metadata.xml"
	maxArchiveMemberBytes = 64 << 20 // 64 MiB
)

// zipMagic is the ZIP local file header signature.
var zipMagic = []byte{0x50, 0x4b, 0x03, 0x04}

// hashNameLengths are the hex digest lengths of MD5, SHA-1 and SHA-256.
var hashNameLengths = map[int]struct{}{32: {}, 40: {}, 64: {}}

var (
	ErrNotZipArchive      = errors.New("content is not a zip archive")
	ErrMissingKey         = errors.New("fingerprint archive metadata carries no key")
	ErrMissingContent     = errors.New("fingerprint archive carries no hash-named member")
	ErrDuplicateHashEntry = errors.New("fingerprint archive carries more than one hash-named member")
)

// ArchiveEntryError reports an archive member that is neither a hash nor metadata.xml.
type ArchiveEntryError struct {
	Name string
}

func (e *ArchiveEntryError) Error() string {
	return fmt.Sprintf("unknown hash type or key for zipfile contents: %s", e.Name)
}

// FingerprintContent is a decoded fingerprint download.
type FingerprintContent struct {
	// Hash is the member name: an MD5, SHA-1 or SHA-256 hex digest.
	Hash string
	Key  byte
	Data []byte
}

type fingerprintMetadata struct {
	Files []struct {
		Key *string `xml:"Key,attr"`
	} `xml:"File"`
}

// IsZipContent reports whether b starts with the ZIP local header magic.
func IsZipContent(b []byte) bool {
	return bytes.HasPrefix(b, zipMagic)
}

// DecodeFingerprintArchive opens a SEPM fingerprint download and XOR-decodes
// its hash-named member with the key from metadata.xml. Nothing is returned
// unless every member is recognised.
func DecodeFingerprintArchive(blob []byte) (*FingerprintContent, error) {
	if !IsZipContent(blob) {
		return nil, ErrNotZipArchive
	}
	zr, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("open fingerprint archive: %w", err)
	}

	var (
		hash    string
		content []byte
		key     *byte
	)
	for _, f := range zr.File {
		_, isHash := hashNameLengths[len(f.Name)]
		switch {
		case isHash:
			if content != nil {
				return nil, ErrDuplicateHashEntry
			}
			data, err := readMember(f)
			if err != nil {
				return nil, err
			}
			hash, content = f.Name, data
		case f.Name == metadataEntry:
			data, err := readMember(f)
			if err != nil {
				return nil, err
			}
			k, err := parseMetadataKey(data)
			if err != nil {
				return nil, err
			}
			key = &k
		default:
			return nil, &ArchiveEntryError{Name: f.Name}
		}
	}

	if key == nil {
		return nil, ErrMissingKey
	}
	if content == nil {
		return nil, ErrMissingContent
	}
	return &FingerprintContent{
		Hash: hash,
		Key:  *key,
		Data: XORDecode(content, *key),
	}, nil
}

// XORDecode returns a copy of data with every byte XOR-ed by key.
func XORDecode(data []byte, key byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ key
	}
	return out
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open archive member %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxArchiveMemberBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read archive member %s: %w", f.Name, err)
	}
	if len(data) > maxArchiveMemberBytes {
		return nil, fmt.Errorf("archive member %s exceeds %d bytes", f.Name, maxArchiveMemberBytes)
	}
	return data, nil
}

// parseMetadataKey returns the Key of the last File element.
func parseMetadataKey(data []byte) (byte, error) {
	var meta fingerprintMetadata
	if err := xml.Unmarshal(data, &meta); err != nil {
		return 0, fmt.Errorf("parse %s: %w", metadataEntry, err)
	}
	if len(meta.Files) == 0 {
		return 0, ErrMissingKey
	}
	last := meta.Files[len(meta.Files)-1]
	if last.Key == nil {
		return 0, fmt.Errorf("%s: File element without Key attribute", metadataEntry)
	}
	n, err := strconv.Atoi(strings.TrimSpace(*last.Key))
	if err != nil || n < 0 || n > 255 {
		return 0, fmt.Errorf("%s: invalid key %q", metadataEntry, *last.Key)
	}
	return byte(n), nil
}
