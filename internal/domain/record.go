package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxAddressLength is the longest address the store accepts. Longer values
// are truncated during validation, never rejected.
const MaxAddressLength = 1024

// DefaultCountry is assigned to records whose source does not carry a
// country field. The upstream data source serves US addresses.
const DefaultCountry = "US"

// Common validation errors for AddressRecord
var (
	ErrEmptyRecordID        = errors.New("record ID cannot be empty")
	ErrEmptyRecordAddress   = errors.New("record address cannot be empty")
	ErrEmptyRecordTelephone = errors.New("record telephone cannot be empty")
)

// AddressRecord is one normalized unit of captured data. Records are
// immutable after creation and deduplicated on the (address, telephone)
// pair.
type AddressRecord struct {
	ID        uuid.UUID `json:"id"`
	Address   string    `json:"address"`
	Telephone string    `json:"telephone"`
	City      string    `json:"city,omitempty"`
	ZipCode   string    `json:"zip_code,omitempty"`
	State     string    `json:"state,omitempty"`
	StateFull string    `json:"state_full,omitempty"`
	Country   string    `json:"country"`
	SourceURL string    `json:"source_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewAddressRecord creates an AddressRecord from already-normalized fields.
// Address and telephone must be non-empty; normalization (trimming,
// truncation, telephone sanitization) is the validate package's job and
// happens before this constructor is called.
func NewAddressRecord(address, telephone, city, zipCode, state, stateFull, sourceURL string) (*AddressRecord, error) {
	record := &AddressRecord{
		ID:        uuid.New(),
		Address:   address,
		Telephone: telephone,
		City:      city,
		ZipCode:   zipCode,
		State:     state,
		StateFull: stateFull,
		Country:   DefaultCountry,
		SourceURL: sourceURL,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the AddressRecord has valid data.
func (r *AddressRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyRecordID
	}

	if r.Address == "" {
		return ErrEmptyRecordAddress
	}

	if r.Telephone == "" {
		return ErrEmptyRecordTelephone
	}

	return nil
}

// DedupKey returns the (address, telephone) pair used to reject duplicate
// records.
func (r *AddressRecord) DedupKey() (string, string) {
	return r.Address, r.Telephone
}
