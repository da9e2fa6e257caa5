package media

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// Kind identifies an image container format by its byte signature.
type Kind string

const (
	KindJPEG Kind = "jpeg"
	KindPNG  Kind = "png"
	KindGIF  Kind = "gif"
	KindWEBP Kind = "webp"
)

// ErrUnknownKind is returned when no known signature matches.
var ErrUnknownKind = errors.New("unknown media type")

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// Detect inspects the leading bytes of a payload and reports the image
// format they declare. Declared MIME types from clients are not trusted;
// this is the check that decides whether bytes are genuinely an image.
func Detect(head []byte) (Kind, error) {
	switch {
	case isJPEG(head):
		return KindJPEG, nil
	case isPNG(head):
		return KindPNG, nil
	case isGIF(head):
		return KindGIF, nil
	case isWEBP(head):
		return KindWEBP, nil
	}
	return "", ErrUnknownKind
}

// VerifyPNG confirms that the file at path starts with the PNG signature.
// The staging pipeline always produces PNG, so a mismatch here is an
// internal bug, not a client error.
func VerifyPNG(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(pngMagic))
	if _, err := f.Read(head); err != nil {
		return fmt.Errorf("read staged file header: %w", err)
	}
	if !isPNG(head) {
		return fmt.Errorf("staged file %s is not a PNG (header %x)", path, head)
	}
	return nil
}

func isJPEG(head []byte) bool {
	return len(head) > 3 && head[0] == 0xff && head[1] == 0xd8 && head[2] == 0xff
}

func isPNG(head []byte) bool {
	return len(head) >= len(pngMagic) && bytes.Equal(head[:len(pngMagic)], pngMagic)
}

func isGIF(head []byte) bool {
	return len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a")))
}

func isWEBP(head []byte) bool {
	return len(head) >= 12 &&
		bytes.Equal(head[:4], []byte("RIFF")) &&
		bytes.Equal(head[8:12], []byte("WEBP"))
}
