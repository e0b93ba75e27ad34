package eth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/hdwscan/internal/dpath"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// AddressBook maps a path template to the addresses derived along it, by
// index. It stands in for key derivation: whoever holds the keys exports the
// addresses, and discovery only prices them.
//
//	"m/44'/60'/0'/0/<addr>":
//	  - "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
//	  - "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
type AddressBook map[string][]string

// ParseAddressBook decodes and validates a YAML address book. Addresses are
// returned in EIP-55 checksum form.
func ParseAddressBook(data []byte) (AddressBook, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, hdwerr.WithCause(hdwerr.WithDetails(hdwerr.ErrConfigInvalid, map[string]string{
			"reason": "address book is not valid YAML",
		}), err)
	}

	book := make(AddressBook, len(raw))
	for value, addresses := range raw {
		if err := (dpath.DPath{Value: value}).Validate(); err != nil {
			return nil, err
		}
		normalized := make([]string, 0, len(addresses))
		for i, addr := range addresses {
			if !IsValidAddress(addr) {
				return nil, hdwerr.WithDetails(hdwerr.ErrInvalidAddress, map[string]string{
					"address": addr,
					"path":    value,
					"index":   fmt.Sprintf("%d", i),
				})
			}
			normalized = append(normalized, common.HexToAddress(addr).Hex())
		}
		book[value] = normalized
	}
	return book, nil
}

// LoadAddressBook reads an address book file.
func LoadAddressBook(path string) (AddressBook, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is user-configured
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, hdwerr.WithDetails(hdwerr.ErrNotFound, map[string]string{"address_book": path})
		}
		return nil, fmt.Errorf("reading address book: %w", err)
	}
	return ParseAddressBook(data)
}

// Window returns the addresses of path in [start, start+count). Indexes past
// the end of the book yield nothing.
func (b AddressBook) Window(path dpath.DPath, start, count int) []string {
	addresses := b[path.Value]
	if start < 0 || count <= 0 || start >= len(addresses) {
		return nil
	}
	return addresses[start:min(start+count, len(addresses))]
}

// IsValidAddress reports whether address is a 0x-prefixed 20-byte hex string.
func IsValidAddress(address string) bool {
	return len(address) == 42 && common.IsHexAddress(address)
}

// NormalizeAddress validates and converts an address to EIP-55 checksum format.
func NormalizeAddress(address string) (string, error) {
	if !IsValidAddress(address) {
		return "", hdwerr.WithDetails(hdwerr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}
	return common.HexToAddress(address).Hex(), nil
}
