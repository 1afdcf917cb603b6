// Package validate holds the pure record checks that run between
// extraction and persistence. Functions here perform no I/O; every
// adjustment they apply is reported back so the caller can log it.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/phamilton/collector-api/internal/domain"
	"github.com/phamilton/collector-api/internal/fetcher"
)

// ErrMissingRequiredField is returned when a designated required field
// (address, telephone) is empty after normalization.
var ErrMissingRequiredField = errors.New("missing required field")

// Adjustment names a normalization the validator applied to a record.
type Adjustment string

// Possible adjustments
const (
	AdjustmentAddressTruncated   Adjustment = "address_truncated"
	AdjustmentTelephoneSanitized Adjustment = "telephone_sanitized"
)

// Normalize checks and normalizes one raw extracted payload into a
// persistable AddressRecord. It returns the record together with the list
// of adjustments applied, or ErrMissingRequiredField (wrapped with the
// field name) when a required field is empty after normalization.
func Normalize(raw *fetcher.AddressPayload, sourceURL string) (*domain.AddressRecord, []Adjustment, error) {
	var adjustments []Adjustment

	address := strings.TrimSpace(raw.Address)
	if address == "" {
		return nil, nil, fmt.Errorf("%w: address", ErrMissingRequiredField)
	}
	if truncated, ok := truncateAddress(address); ok {
		address = truncated
		adjustments = append(adjustments, AdjustmentAddressTruncated)
	}

	telephone := strings.TrimSpace(raw.Telephone)
	if telephone == "" {
		return nil, nil, fmt.Errorf("%w: telephone", ErrMissingRequiredField)
	}
	sanitized := sanitizeTelephone(telephone)
	if sanitized == "" {
		// Nothing but separators and letters; treat the same as absent.
		return nil, nil, fmt.Errorf("%w: telephone", ErrMissingRequiredField)
	}
	if sanitized != telephone {
		adjustments = append(adjustments, AdjustmentTelephoneSanitized)
	}

	record, err := domain.NewAddressRecord(
		address,
		sanitized,
		strings.TrimSpace(raw.City),
		strings.TrimSpace(raw.ZipCode),
		strings.TrimSpace(raw.State),
		strings.TrimSpace(raw.StateFull),
		sourceURL,
	)
	if err != nil {
		return nil, nil, err
	}

	return record, adjustments, nil
}

// truncateAddress caps an address at domain.MaxAddressLength runes.
// Over-long addresses are truncated, never rejected.
func truncateAddress(address string) (string, bool) {
	runes := []rune(address)
	if len(runes) <= domain.MaxAddressLength {
		return address, false
	}
	return string(runes[:domain.MaxAddressLength]), true
}

// sanitizeTelephone strips every non-digit character.
func sanitizeTelephone(telephone string) string {
	var digits strings.Builder
	for _, r := range telephone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}
