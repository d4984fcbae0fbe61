package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/primebench/primebench/internal/results"
	"github.com/primebench/primebench/internal/stream"
)

// ArchiveVersion is the only archive layout ReadArchive accepts.
const ArchiveVersion = 1

// archiveMagic prefixes every archive file ahead of the zstd frame.
var archiveMagic = []byte("PBARC")

// maxArchiveSize bounds the decompressed archive: 100 items of 1500
// digits is far below it.
const maxArchiveSize = 16 << 20

var (
	ErrNotArchive       = errors.New("not a primebench archive")
	ErrChecksumMismatch = errors.New("archive checksum mismatch")
)

// Archive is a saved session: its request, outcome and items.
type Archive struct {
	Version   int               `cbor:"1,keyasint"`
	SessionID string            `cbor:"2,keyasint"`
	Params    stream.Params     `cbor:"3,keyasint"`
	Status    stream.Status     `cbor:"4,keyasint"`
	CreatedAt time.Time         `cbor:"5,keyasint"`
	Items     []results.Item    `cbor:"6,keyasint"`
	Aggregate results.Aggregate `cbor:"7,keyasint"`
	// Checksum is the BLAKE3-256 digest of the items' CSV table.
	Checksum []byte `cbor:"8,keyasint"`
}

var (
	archiveEnc  cbor.EncMode
	archiveDec  cbor.DecMode
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	encOptions.Time = cbor.TimeRFC3339Nano
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	archiveEnc, err = encOptions.EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
	archiveDec, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("export: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("export: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxArchiveSize))
	if err != nil {
		panic("export: zstd decoder initialization failed: " + err.Error())
	}
}

// NewArchive captures snap for the given session.
func NewArchive(sessionID string, params stream.Params, status stream.Status, snap results.Snapshot, now time.Time) Archive {
	return Archive{
		Version:   ArchiveVersion,
		SessionID: sessionID,
		Params:    params,
		Status:    status,
		CreatedAt: now.UTC(),
		Items:     snap.Items,
		Aggregate: snap.Aggregate,
	}
}

// WriteArchive fills in the checksum and writes a compressed archive to w.
func WriteArchive(w io.Writer, a Archive) error {
	a.Version = ArchiveVersion
	sum, err := itemsChecksum(a.Items)
	if err != nil {
		return err
	}
	a.Checksum = sum

	raw, err := archiveEnc.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	if _, err := w.Write(archiveMagic); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	if _, err := w.Write(zstdEncoder.EncodeAll(raw, nil)); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}

// ReadArchive decodes an archive and verifies its checksum. The aggregate
// is recomputed by replaying the items into a fresh store rather than
// trusted from the file.
func ReadArchive(r io.Reader) (Archive, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxArchiveSize+int64(len(archiveMagic))))
	if err != nil {
		return Archive{}, fmt.Errorf("read archive: %w", err)
	}
	if !bytes.HasPrefix(data, archiveMagic) {
		return Archive{}, ErrNotArchive
	}

	raw, err := zstdDecoder.DecodeAll(data[len(archiveMagic):], nil)
	if err != nil {
		return Archive{}, fmt.Errorf("decompress archive: %w", err)
	}

	var a Archive
	if err := archiveDec.Unmarshal(raw, &a); err != nil {
		return Archive{}, fmt.Errorf("decode archive: %w", err)
	}
	if a.Version != ArchiveVersion {
		return Archive{}, fmt.Errorf("unsupported archive version %d", a.Version)
	}

	for i, it := range a.Items {
		if it.Int() == nil {
			return Archive{}, fmt.Errorf("archive item %d: value %q is not an integer", i, it.Value)
		}
	}
	sum, err := itemsChecksum(a.Items)
	if err != nil {
		return Archive{}, err
	}
	if !bytes.Equal(sum, a.Checksum) {
		return Archive{}, ErrChecksumMismatch
	}

	store := results.NewStore()
	for _, it := range a.Items {
		store.Append(it)
	}
	snap := store.Snapshot()
	a.Items = snap.Items
	a.Aggregate = snap.Aggregate
	return a, nil
}

func itemsChecksum(items []results.Item) ([]byte, error) {
	table, err := ToTable(results.Snapshot{Items: items})
	if err != nil {
		return nil, fmt.Errorf("checksum archive: %w", err)
	}
	sum := blake3.Sum256(table)
	return sum[:], nil
}
