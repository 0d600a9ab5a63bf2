package api

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strings"
)

var ticketExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".heic": "image/heic",
	".heif": "image/heic",
}

var heicBrands = [][]byte{[]byte("heic"), []byte("heix"), []byte("hevc"), []byte("heim"), []byte("mif1")}

// detectTicketContentType sniffs an uploaded ticket image. The filename
// extension must agree with the sniffed content.
func detectTicketContentType(filename string, body []byte) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	expected, ok := ticketExtensions[strings.ToLower(filepath.Ext(filename))]
	if !ok {
		return "", false
	}

	sniffed := http.DetectContentType(body)
	if sniffed == "application/octet-stream" && isHEIC(body) {
		sniffed = "image/heic"
	}
	if sniffed != expected {
		return "", false
	}
	return sniffed, true
}

func isHEIC(body []byte) bool {
	if len(body) < 12 || !bytes.Equal(body[4:8], []byte("ftyp")) {
		return false
	}
	for _, brand := range heicBrands {
		if bytes.Equal(body[8:12], brand) {
			return true
		}
	}
	return false
}
