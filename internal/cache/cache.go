package cache

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ulikunitz/xz"
	"go.uber.org/zap"
)

// Ext is the canonical blob extension. Only filenames carrying it are
// considered during lookup.
const Ext = ".cortex"

// Store is the on-disk cache of raw feature results, one serialized blob per
// (feature, participant, start, end). A stored window that covers the
// requested one is a valid hit; the caller filters the envelope down.
type Store struct {
	dir         string
	compression string // "", "gz", "bz2", "xz", "zip"
	logger      *zap.Logger
}

// New opens (and creates if needed) a cache directory.
func New(dir, compression string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	if compression == "bz2" {
		// The standard library only reads bzip2. Fall back to plain blobs
		// rather than failing every write.
		logger.Warn("bz2 cache writes are unsupported, storing uncompressed")
	}
	return &Store{dir: dir, compression: compression, logger: logger}, nil
}

// Key identifies one cached window. Fields are joined with "_" in the
// blob filename, so participant ids must not embed a full
// "<feature>_" suffix of another feature name; LAMP ids (U-prefixed
// digit strings) never do.
type Key struct {
	Feature     string // short feature name, e.g. "gps"
	Participant string
	Start       int64
	End         int64
}

func (k Key) filename(codec string) string {
	name := fmt.Sprintf("%s_%s_%d_%d%s", k.Feature, k.Participant, k.Start, k.End, Ext)
	if codec != "" && codec != "bz2" {
		name += "." + codec
	}
	return name
}

// Get looks up a blob covering the requested window and decodes it into out.
// The hit's stored window is returned so the caller can filter. ok is false
// on miss; corrupt blobs count as misses.
func (s *Store) Get(key Key, out interface{}) (stored Key, ok bool) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return Key{}, false
	}

	prefix := fmt.Sprintf("%s_%s_", key.Feature, key.Participant)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		cand, codec, parseOK := parseFilename(name, key.Feature, key.Participant)
		if !parseOK {
			continue
		}
		if cand.Start > key.Start || cand.End < key.End {
			continue
		}

		raw, err := s.readBlob(filepath.Join(s.dir, name), codec)
		if err != nil {
			s.logger.Warn("cache blob unreadable, treating as miss",
				zap.String("file", name), zap.Error(err))
			continue
		}
		if err := json.Unmarshal(raw, out); err != nil {
			s.logger.Warn("cache blob corrupt, treating as miss",
				zap.String("file", name), zap.Error(err))
			continue
		}
		return cand, true
	}
	return Key{}, false
}

// Put serializes v and writes it under the canonical filename for key, using
// the configured compression.
func (s *Store) Put(key Key, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache blob: %w", err)
	}

	codec := s.compression
	if codec == "bz2" {
		codec = ""
	}
	encoded, err := encode(raw, codec)
	if err != nil {
		return fmt.Errorf("compress cache blob: %w", err)
	}

	path := filepath.Join(s.dir, key.filename(s.compression))
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return fmt.Errorf("write cache blob: %w", err)
	}
	return nil
}

// parseFilename extracts the stored window from
// <feature>_<participant>_<start>_<end>.cortex[.codec].
func parseFilename(name, feature, participant string) (Key, string, bool) {
	rest := strings.TrimPrefix(name, feature+"_"+participant+"_")

	idx := strings.Index(rest, Ext)
	if idx < 0 {
		return Key{}, "", false
	}
	window := rest[:idx]
	codec := strings.TrimPrefix(rest[idx+len(Ext):], ".")
	switch codec {
	case "", "gz", "bz2", "xz", "zip":
	default:
		return Key{}, "", false
	}

	parts := strings.Split(window, "_")
	if len(parts) != 2 {
		return Key{}, "", false
	}
	start, err1 := strconv.ParseInt(parts[0], 10, 64)
	end, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return Key{}, "", false
	}

	return Key{Feature: feature, Participant: participant, Start: start, End: end}, codec, true
}

func (s *Store) readBlob(path, codec string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(raw, codec)
}

func encode(raw []byte, codec string) ([]byte, error) {
	switch codec {
	case "":
		return raw, nil
	case "gz":
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "xz":
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "zip":
		var buf bytes.Buffer
		w := zip.NewWriter(&buf)
		f, err := w.Create("data")
		if err != nil {
			return nil, err
		}
		if _, err := f.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported codec %q", codec)
	}
}

func decode(raw []byte, codec string) ([]byte, error) {
	switch codec {
	case "":
		return raw, nil
	case "gz":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "bz2":
		return io.ReadAll(bzip2.NewReader(bytes.NewReader(raw)))
	case "xz":
		r, err := xz.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		return io.ReadAll(r)
	case "zip":
		zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
		if err != nil {
			return nil, err
		}
		if len(zr.File) == 0 {
			return nil, fmt.Errorf("empty zip blob")
		}
		f, err := zr.File[0].Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	default:
		return nil, fmt.Errorf("unsupported codec %q", codec)
	}
}
