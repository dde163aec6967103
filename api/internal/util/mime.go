package util

import (
	"bytes"
	"encoding/base64"
	"strings"
)

// StripDataURL drops everything up to and including the first comma.
// "data:audio/mp3;base64,AAAA" -> "AAAA"; strings without a comma are returned trimmed.
func StripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ','); i != -1 {
		return s[i+1:]
	}
	return s
}

// DataURLMIME returns the MIME type of a data: URI prefix, if any.
func DataURLMIME(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(strings.ToLower(s), "data:") {
		return ""
	}
	idx := strings.IndexByte(s, ',')
	if idx == -1 {
		return ""
	}
	meta := s[len("data:"):idx] // "<mime>;base64"
	if semi := strings.IndexByte(meta, ';'); semi >= 0 {
		meta = meta[:semi]
	}
	return strings.TrimSpace(meta)
}

// DecodeBase64 tries standard, then unpadded, then URL-safe alphabets.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return b, nil
	}
	if b2, err2 := base64.RawStdEncoding.DecodeString(s); err2 == nil {
		return b2, nil
	}
	if b3, err3 := base64.URLEncoding.DecodeString(s); err3 == nil {
		return b3, nil
	}
	if b4, err4 := base64.RawURLEncoding.DecodeString(s); err4 == nil {
		return b4, nil
	}
	return nil, err
}

// SniffAudioMIME recognises the common container signatures; "" when unknown.
func SniffAudioMIME(b []byte) string {
	switch {
	case len(b) >= 3 && bytes.Equal(b[:3], []byte("ID3")):
		return "audio/mp3"
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return "audio/mp3" // MPEG frame sync
	case len(b) >= 12 && bytes.Equal(b[:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")):
		return "audio/wav"
	case len(b) >= 4 && bytes.Equal(b[:4], []byte("OggS")):
		return "audio/ogg"
	case len(b) >= 4 && bytes.Equal(b[:4], []byte("fLaC")):
		return "audio/flac"
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")):
		return "audio/mp4"
	case len(b) >= 4 && bytes.Equal(b[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "audio/webm"
	}
	return ""
}

// PickMIME: explicit, then data: URI hint, then sniffed bytes, then def.
func PickMIME(explicit, hint string, data []byte, def string) string {
	if exp := strings.TrimSpace(explicit); exp != "" {
		return exp
	}
	if h := strings.TrimSpace(hint); h != "" {
		return h
	}
	if m := SniffAudioMIME(data); m != "" {
		return m
	}
	return def
}
