// Package dpath describes HD derivation paths used during account discovery.
// A path is a template; the address index is substituted for IndexPlaceholder.
package dpath

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"

	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// IndexPlaceholder marks where the address index goes in a path template.
const IndexPlaceholder = "<addr>"

// MaxTypoDistance is the largest edit distance for which Suggest returns a label.
const MaxTypoDistance = 3

// DPath is a derivation path descriptor. Two descriptors refer to the same
// path when their Values are equal.
type DPath struct {
	// Label is the human-readable name, e.g. "Ledger Live".
	Label string `json:"label" yaml:"label"`

	// Value is the path template, e.g. "m/44'/60'/0'/0/<addr>".
	Value string `json:"value" yaml:"value"`
}

// String returns the label.
func (p DPath) String() string {
	return p.Label
}

// Same reports whether p and other describe the same path.
func (p DPath) Same(other DPath) bool {
	return p.Value == other.Value
}

// IsZero reports whether the descriptor is empty.
func (p DPath) IsZero() bool {
	return p.Value == ""
}

// Validate checks the template shape.
func (p DPath) Validate() error {
	if p.Value == "" || !strings.HasPrefix(p.Value, "m/") || strings.Count(p.Value, IndexPlaceholder) != 1 {
		return hdwerr.WithDetails(hdwerr.ErrUnknownPath, map[string]string{
			"label": p.Label,
			"value": p.Value,
		})
	}
	return nil
}

// At returns the concrete path for an address index.
func (p DPath) At(index int) string {
	return strings.Replace(p.Value, IndexPlaceholder, strconv.Itoa(index), 1)
}

// Defaults returns the derivation paths scanned when none are configured.
// Ordered by how likely they are to hold funds.
func Defaults() []DPath {
	return []DPath{
		{Label: "Default (ETH)", Value: "m/44'/60'/0'/0/<addr>"},
		{Label: "Ledger Live (ETH)", Value: "m/44'/60'/<addr>'/0/0"},
		{Label: "Ledger Legacy (ETH)", Value: "m/44'/60'/0'/<addr>"},
		{Label: "Ethereum Classic", Value: "m/44'/61'/0'/0/<addr>"},
		{Label: "Testnet (ETH)", Value: "m/44'/1'/0'/0/<addr>"},
		{Label: "SingularDTV", Value: "m/0'/0'/0'/<addr>"},
	}
}

// ByLabel returns the path with the given label, compared case-insensitively.
func ByLabel(paths []DPath, label string) (DPath, bool) {
	for _, p := range paths {
		if strings.EqualFold(p.Label, label) {
			return p, true
		}
	}
	return DPath{}, false
}

// Suggest returns the label closest to input, or "" when nothing is within
// MaxTypoDistance.
func Suggest(paths []DPath, input string) string {
	input = strings.ToLower(input)

	minDist := math.MaxInt
	var suggestion string
	for _, p := range paths {
		dist := levenshtein.ComputeDistance(input, strings.ToLower(p.Label))
		if dist < minDist {
			minDist = dist
			suggestion = p.Label
		}
	}

	if minDist <= MaxTypoDistance {
		return suggestion
	}
	return ""
}

// Resolve maps labels to paths, dropping repeats. Unknown labels fail with
// ErrUnknownPath, carrying a suggestion when one is close.
func Resolve(paths []DPath, labels []string) ([]DPath, error) {
	out := make([]DPath, 0, len(labels))
	for _, label := range labels {
		p, ok := ByLabel(paths, label)
		if !ok {
			err := hdwerr.WithDetails(hdwerr.ErrUnknownPath, map[string]string{"label": label})
			if s := Suggest(paths, label); s != "" {
				err = hdwerr.WithSuggestion(err, "did you mean \""+s+"\"?")
			}
			return nil, err
		}
		if !slices.ContainsFunc(out, p.Same) {
			out = append(out, p)
		}
	}
	return out, nil
}
