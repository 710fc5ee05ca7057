// Package ezcrypt implements the fixed-key AES-CBC transform applied to .ez containers.
package ezcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"os"
)

// ChunkSize is the amount of ciphertext decrypted per step.
const ChunkSize = 64 * 1024

// Key is the container key shared by every asset.
var Key = [16]byte{
	0x2a, 0xb5, 0x11, 0xf4, 0x77, 0x97, 0x7d, 0x25,
	0xcf, 0x6f, 0x7a, 0x8a, 0xe0, 0x49, 0xa1, 0x25,
}

// IV is sixteen ASCII '0' characters.
var IV = [16]byte{
	'0', '0', '0', '0', '0', '0', '0', '0',
	'0', '0', '0', '0', '0', '0', '0', '0',
}

// ErrNotBlockAligned is returned when the ciphertext length is not a multiple of the AES block size.
var ErrNotBlockAligned = errors.New("ciphertext is not block aligned")

// Decrypt streams src through AES-CBC decryption into dst in ChunkSize steps
// and truncates the output to size bytes. It returns the number of bytes written.
func Decrypt(dst io.Writer, src io.Reader, size int64) (int64, error) {
	block, err := aes.NewCipher(Key[:])
	if err != nil {
		return 0, err
	}
	mode := cipher.NewCBCDecrypter(block, IV[:])
	return transform(dst, src, size, mode)
}

// Encrypt is the inverse of Decrypt. It is used to build containers for tests
// and requires a block-aligned plaintext.
func Encrypt(dst io.Writer, src io.Reader, size int64) (int64, error) {
	block, err := aes.NewCipher(Key[:])
	if err != nil {
		return 0, err
	}
	mode := cipher.NewCBCEncrypter(block, IV[:])
	return transform(dst, src, size, mode)
}

// DecryptBytes decrypts an in-memory container.
func DecryptBytes(data []byte) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrNotBlockAligned, len(data))
	}
	out := make([]byte, len(data))
	block, err := aes.NewCipher(Key[:])
	if err != nil {
		return nil, err
	}
	cipher.NewCBCDecrypter(block, IV[:]).CryptBlocks(out, data)
	return out, nil
}

// DecryptFile decrypts the container at inPath into outPath.
// The output is truncated to the input file size.
func DecryptFile(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("opening container: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat container: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	if _, err := Decrypt(out, in, info.Size()); err != nil {
		out.Close()
		return fmt.Errorf("decrypting %s: %w", inPath, err)
	}
	return out.Close()
}

// transform runs mode over src chunk by chunk. CBC chaining state lives in
// mode, so chunks must be processed strictly in order.
func transform(dst io.Writer, src io.Reader, size int64, mode cipher.BlockMode) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64

	for {
		n, err := io.ReadFull(src, buf)
		if n > 0 {
			if n%aes.BlockSize != 0 {
				return written, fmt.Errorf("%w: trailing %d bytes", ErrNotBlockAligned, n%aes.BlockSize)
			}
			chunk := buf[:n]
			mode.CryptBlocks(chunk, chunk)

			if remaining := size - written; int64(n) > remaining {
				chunk = chunk[:max(remaining, 0)]
			}
			m, werr := dst.Write(chunk)
			written += int64(m)
			if werr != nil {
				return written, werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}
	}
}
