package upsert

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/bobg/seguid"
)

// Submission is a request to associate identifiers with a Seguid.
// It is either a SequenceSubmission or a FingerprintSubmission.
type Submission interface {
	// Resolve produces the Seguid that the submission's identifiers belong to.
	Resolve() seguid.Seguid

	// Identifiers returns the identifiers to record.
	Identifiers() []string

	isSubmission()
}

// SequenceSubmission carries a raw sequence, to be fingerprinted.
type SequenceSubmission struct {
	Seq string
	IDs []string
}

// FingerprintSubmission carries a precomputed Seguid
// in either base64 alphabet.
// Submitting one requires authorization.
type FingerprintSubmission struct {
	Seguid string
	IDs    []string
}

// Resolve implements Submission.
func (s SequenceSubmission) Resolve() seguid.Seguid { return seguid.FromSeq([]byte(s.Seq)) }

// Identifiers implements Submission.
func (s SequenceSubmission) Identifiers() []string { return s.IDs }

func (SequenceSubmission) isSubmission() {}

// Resolve implements Submission.
func (s FingerprintSubmission) Resolve() seguid.Seguid { return seguid.FromURL(s.Seguid) }

// Identifiers implements Submission.
func (s FingerprintSubmission) Identifiers() []string { return s.IDs }

func (FingerprintSubmission) isSubmission() {}

type wireSubmission struct {
	Seq    *string  `json:"seq,omitempty"`
	Seguid *string  `json:"seguid,omitempty"`
	IDs    []string `json:"ids"`
}

// ParseSubmissions decodes a JSON array of submissions.
// Each member has an "ids" array and exactly one of "seq" or "seguid".
// Any member that does not is malformed,
// and so is the whole array.
func ParseSubmissions(data []byte) ([]Submission, error) {
	var items []wireSubmission
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrapf(seguid.ErrMalformed, "decoding submissions: %s", err)
	}

	subs := make([]Submission, 0, len(items))
	for i, item := range items {
		switch {
		case item.Seq != nil && item.Seguid != nil:
			return nil, errors.Wrapf(seguid.ErrMalformed, "item %d has both seq and seguid", i)
		case item.Seq != nil:
			subs = append(subs, SequenceSubmission{Seq: *item.Seq, IDs: item.IDs})
		case item.Seguid != nil:
			subs = append(subs, FingerprintSubmission{Seguid: *item.Seguid, IDs: item.IDs})
		default:
			return nil, errors.Wrapf(seguid.ErrMalformed, "item %d has neither seq nor seguid", i)
		}
	}
	return subs, Validate(subs)
}

// MarshalSubmissions is the inverse of ParseSubmissions.
func MarshalSubmissions(subs []Submission) ([]byte, error) {
	items := make([]wireSubmission, 0, len(subs))
	for _, sub := range subs {
		item := wireSubmission{IDs: sub.Identifiers()}
		switch sub := sub.(type) {
		case SequenceSubmission:
			item.Seq = &sub.Seq
		case FingerprintSubmission:
			item.Seguid = &sub.Seguid
		}
		items = append(items, item)
	}
	return json.Marshal(items)
}

// Validate checks every submission before any is processed.
// A submission is malformed when it has no identifiers
// or when it carries a Seguid of the wrong length.
func Validate(subs []Submission) error {
	for i, sub := range subs {
		if len(sub.Identifiers()) == 0 {
			return errors.Wrapf(seguid.ErrMalformed, "item %d has no ids", i)
		}
		for _, id := range sub.Identifiers() {
			if id == "" {
				return errors.Wrapf(seguid.ErrMalformed, "item %d has an empty id", i)
			}
		}
		if fsub, ok := sub.(FingerprintSubmission); ok {
			if !fsub.Resolve().Valid() {
				return errors.Wrapf(seguid.ErrMalformed, "item %d: seguid %s has length %d", i, fsub.Seguid, len(fsub.Seguid))
			}
		}
	}
	return nil
}

// NeedsAuth tells whether any of subs requires authorization.
func NeedsAuth(subs []Submission) bool {
	for _, sub := range subs {
		if _, ok := sub.(FingerprintSubmission); ok {
			return true
		}
	}
	return false
}
