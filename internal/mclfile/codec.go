// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Andrei Valekseev

package mclfile

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
)

// Encoding selects the at-rest transformations applied to a file payload.
// EncodingCompress and EncodingEncrypt are bit flags and may be combined;
// EncodingSealed is the modern container and supersedes EncodingEncrypt
// when both are set.
type Encoding uint8

const (
	EncodingNone     Encoding = 0
	EncodingCompress Encoding = 1
	EncodingEncrypt  Encoding = 2
	EncodingSealed   Encoding = 4
)

// ParseEncoding maps a configuration string onto the encoding flags.
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "none":
		return EncodingNone, nil
	case "compress":
		return EncodingCompress, nil
	case "encrypt":
		return EncodingEncrypt, nil
	case "compress+encrypt":
		return EncodingCompress | EncodingEncrypt, nil
	case "sealed":
		return EncodingSealed | EncodingCompress, nil
	default:
		return EncodingNone, fmt.Errorf("unknown encoding %q", s)
	}
}

// 3-byte signatures identifying the transformation of a stored file. A file
// starting with none of them is plaintext and the 3 bytes belong to the
// payload.
var (
	sigCompress = []byte("mcl") // gzip(payload)
	sigEncrypt  = []byte("mpw") // cipher(payload)
	sigBoth     = []byte("mcp") // cipher(gzip(payload))
	sigSealed   = []byte("mps") // flags ‖ salt ‖ nonce ‖ AES-GCM(payload)
)

// legacyIV is the fixed CBC initialization vector of the legacy formats.
//
// Reusing one IV across all files and passwords is a known weakness of the
// original on-disk format: identical plaintext prefixes produce identical
// ciphertext prefixes. It is kept only for compatibility with existing .mcl
// files; new writes should prefer EncodingSealed, which uses a random salt
// and nonce per file.
var legacyIV = []byte("msnpsharplibrary")

const sealedFlagCompressed = 0x01

// legacyKey derives the 256-bit legacy cipher key: SHA-256 of the UTF-8
// password bytes, or 32 zero bytes when no password is set.
func legacyKey(password string) []byte {
	if password == "" {
		return make([]byte, 32)
	}
	sum := sha256.Sum256([]byte(password))
	return sum[:]
}

// sealedKey derives the sealed-format key from the password and a per-file
// random salt using Argon2id (OWASP parameters, matching 32-byte output).
func sealedKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}

// encode applies the transformations selected by enc and returns the full
// file image including the signature bytes.
func encode(payload []byte, enc Encoding, password string) ([]byte, error) {
	if enc&EncodingSealed != 0 {
		return encodeSealed(payload, enc&EncodingCompress != 0, password)
	}

	switch {
	case enc&EncodingCompress != 0 && enc&EncodingEncrypt != 0:
		compressed, err := gzipBytes(payload)
		if err != nil {
			return nil, err
		}
		enciphered, err := legacyEncipher(compressed, password)
		if err != nil {
			return nil, err
		}
		return append(append([]byte{}, sigBoth...), enciphered...), nil

	case enc&EncodingEncrypt != 0:
		enciphered, err := legacyEncipher(payload, password)
		if err != nil {
			return nil, err
		}
		return append(append([]byte{}, sigEncrypt...), enciphered...), nil

	case enc&EncodingCompress != 0:
		compressed, err := gzipBytes(payload)
		if err != nil {
			return nil, err
		}
		return append(append([]byte{}, sigCompress...), compressed...), nil

	default:
		return payload, nil
	}
}

// decode inspects the first 3 bytes of raw and reverses the matching
// transformation. When no signature matches, the whole input including the
// 3 inspected bytes is returned as plaintext payload.
func decode(raw []byte, password string) ([]byte, Encoding, error) {
	if len(raw) < 3 {
		return raw, EncodingNone, nil
	}

	sig, body := raw[:3], raw[3:]
	switch {
	case bytes.Equal(sig, sigCompress):
		payload, err := gunzipBytes(body)
		if err != nil {
			return nil, EncodingCompress, fmt.Errorf("decompress: %w", err)
		}
		return payload, EncodingCompress, nil

	case bytes.Equal(sig, sigEncrypt):
		payload, err := legacyDecipher(body, password)
		if err != nil {
			return nil, EncodingEncrypt, fmt.Errorf("decipher: %w", err)
		}
		return payload, EncodingEncrypt, nil

	case bytes.Equal(sig, sigBoth):
		compressed, err := legacyDecipher(body, password)
		if err != nil {
			return nil, EncodingCompress | EncodingEncrypt, fmt.Errorf("decipher: %w", err)
		}
		payload, err := gunzipBytes(compressed)
		if err != nil {
			return nil, EncodingCompress | EncodingEncrypt, fmt.Errorf("decompress: %w", err)
		}
		return payload, EncodingCompress | EncodingEncrypt, nil

	case bytes.Equal(sig, sigSealed):
		return decodeSealed(body, password)

	default:
		return raw, EncodingNone, nil
	}
}

// legacyEncipher encrypts payload with AES-256-CBC, PKCS#7 padding and the
// fixed legacy IV.
func legacyEncipher(payload []byte, password string) ([]byte, error) {
	block, err := aes.NewCipher(legacyKey(password))
	if err != nil {
		return nil, err
	}

	padded := pkcs7Pad(payload, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, legacyIV).CryptBlocks(out, padded)
	return out, nil
}

func legacyDecipher(body []byte, password string) ([]byte, error) {
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a positive multiple of the block size", len(body))
	}

	block, err := aes.NewCipher(legacyKey(password))
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, legacyIV).CryptBlocks(out, body)
	return pkcs7Unpad(out, aes.BlockSize)
}

// encodeSealed writes the modern container: signature, flag byte, 16-byte
// random salt, then nonce ‖ AES-256-GCM ciphertext keyed by
// argon2id(password, salt).
func encodeSealed(payload []byte, compressed bool, password string) ([]byte, error) {
	var flags byte
	if compressed {
		var err error
		if payload, err = gzipBytes(payload); err != nil {
			return nil, err
		}
		flags |= sealedFlagCompressed
	}

	salt := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(sealedKey(password, salt))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	out := append(append([]byte{}, sigSealed...), flags)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, gcm.Seal(nil, nonce, payload, nil)...)
	return out, nil
}

func decodeSealed(body []byte, password string) ([]byte, Encoding, error) {
	enc := EncodingSealed
	if len(body) < 1+16 {
		return nil, enc, fmt.Errorf("sealed file truncated")
	}
	flags, salt, blob := body[0], body[1:17], body[17:]

	block, err := aes.NewCipher(sealedKey(password, salt))
	if err != nil {
		return nil, enc, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, enc, err
	}

	if len(blob) < gcm.NonceSize() {
		return nil, enc, fmt.Errorf("sealed file truncated")
	}
	nonce, ciphertext := blob[:gcm.NonceSize()], blob[gcm.NonceSize():]

	payload, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, enc, fmt.Errorf("unseal: %w", err)
	}

	if flags&sealedFlagCompressed != 0 {
		enc |= EncodingCompress
		if payload, err = gunzipBytes(payload); err != nil {
			return nil, enc, fmt.Errorf("decompress: %w", err)
		}
	}
	return payload, enc, nil
}

func gzipBytes(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(payload); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(body []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func pkcs7Pad(payload []byte, blockSize int) []byte {
	n := blockSize - len(payload)%blockSize
	return append(payload, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(payload []byte, blockSize int) ([]byte, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty padded payload")
	}
	n := int(payload[len(payload)-1])
	if n == 0 || n > blockSize || n > len(payload) {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range payload[len(payload)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return payload[:len(payload)-n], nil
}
