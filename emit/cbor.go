package emit

import (
	"bytes"
	"fmt"
	"io"

	"github.com/chazu/dispatchgen/table"
	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the format version written into every table image.
const ImageVersion = 1

// Image is the binary form of a built table, for runtimes that load the
// table at startup instead of compiling it in.
type Image struct {
	Version     uint        `cbor:"1,keyasint"`
	Capacity    uint32      `cbor:"2,keyasint"`
	Handlers    []string    `cbor:"3,keyasint"`
	Entries     []ImageSlot `cbor:"4,keyasint"` // input order
	Fingerprint []byte      `cbor:"5,keyasint"`
	Source      string      `cbor:"6,keyasint,omitempty"`
}

// ImageSlot records one entry and the slot it was placed in.
type ImageSlot struct {
	Slot       uint32 `cbor:"1,keyasint"`
	Key        uint32 `cbor:"2,keyasint"`
	HandlerIdx uint32 `cbor:"3,keyasint"`
	Name       string `cbor:"4,keyasint,omitempty"`
}

// cborEncMode uses canonical mode for deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("emit: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// NewImage captures t and its handler names.
func NewImage(t *table.Table, handlers []string, source string) *Image {
	fp := table.Fingerprint(t)
	img := &Image{
		Version:     ImageVersion,
		Capacity:    t.Capacity,
		Handlers:    handlers,
		Entries:     make([]ImageSlot, 0, len(t.Probes)),
		Fingerprint: fp[:],
		Source:      source,
	}
	for _, p := range t.Probes {
		img.Entries = append(img.Entries, ImageSlot{
			Slot:       p.SlotIndex,
			Key:        p.Key,
			HandlerIdx: t.Slots[p.SlotIndex].HandlerIdx,
			Name:       p.Name,
		})
	}
	return img
}

// EncodeImage serializes an Image to CBOR bytes.
func EncodeImage(img *Image) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// DecodeImage deserializes an Image from CBOR bytes.
func DecodeImage(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("emit: unmarshal table image: %w", err)
	}
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("emit: unsupported table image version %d", img.Version)
	}
	return &img, nil
}

// Table rebuilds the table the image was taken from. The entries are
// placed again in their recorded order; every entry must land in its
// recorded slot and the result must match the recorded fingerprint.
func (img *Image) Table() (*table.Table, error) {
	entries := make([]table.Entry, len(img.Entries))
	for i, e := range img.Entries {
		if int(e.HandlerIdx) >= len(img.Handlers) {
			return nil, fmt.Errorf("emit: image entry %d refers to handler %d of %d", i, e.HandlerIdx, len(img.Handlers))
		}
		entries[i] = table.Entry{Name: e.Name, Key: e.Key, HandlerIdx: e.HandlerIdx}
	}

	t, err := table.Build(entries, img.Capacity)
	if err != nil {
		return nil, fmt.Errorf("emit: rebuilding image: %w", err)
	}
	for i, p := range t.Probes {
		if p.SlotIndex != img.Entries[i].Slot {
			return nil, fmt.Errorf("emit: image places key %d in slot %d, rebuild placed it in slot %d",
				p.Key, img.Entries[i].Slot, p.SlotIndex)
		}
	}
	if fp := table.Fingerprint(t); !bytes.Equal(fp[:], img.Fingerprint) {
		return nil, fmt.Errorf("emit: image fingerprint mismatch")
	}
	return t, nil
}

// ImageEmitter writes the CBOR table image.
type ImageEmitter struct{}

// Emit implements Emitter.
func (ImageEmitter) Emit(w io.Writer, in *Input) error {
	data, err := EncodeImage(NewImage(in.Table, in.Handlers, in.Source))
	if err != nil {
		return fmt.Errorf("emit: marshal table image: %w", err)
	}
	_, err = w.Write(data)
	return err
}
