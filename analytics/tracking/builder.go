// SPDX-License-Identifier: ice License 1.0

package tracking

import (
	"github.com/goccy/go-json"
)

func newEventBuilder(validator Validator) *eventBuilder {
	if validator == nil {
		validator = DefaultValidator()
	}

	return &eventBuilder{validator: validator}
}

func (b *eventBuilder) buildTrack(opts *TrackOptions) (*EventRecord, error) {
	if opts == nil {
		return nil, invalidArgument("options", "track options are required")
	}
	if err := b.validator.Identity(opts.SessionID, opts.UserID); err != nil {
		return nil, err //nolint:wrapcheck // It's already carrying everything the caller needs.
	}
	timestamp, err := b.validator.Timestamp(opts.Timestamp)
	if err != nil {
		return nil, err //nolint:wrapcheck // .
	}
	if err = b.validator.EventName(opts.Event); err != nil {
		return nil, err //nolint:wrapcheck // .
	}
	properties, err := b.validator.Mapping("properties", opts.Properties)
	if err != nil {
		return nil, err //nolint:wrapcheck // .
	}

	record := &EventRecord{
		Action:     ActionTrack,
		SessionID:  opts.SessionID,
		UserID:     opts.UserID,
		Timestamp:  timestamp,
		Context:    mergeContext(opts.Context),
		Event:      opts.Event,
		Properties: properties,
	}
	if err = ensureEncodable(record); err != nil {
		return nil, err
	}

	return record, nil
}

func (b *eventBuilder) buildIdentify(opts *IdentifyOptions) (*EventRecord, error) {
	if opts == nil {
		return nil, invalidArgument("options", "identify options are required")
	}
	if err := b.validator.Identity(opts.SessionID, opts.UserID); err != nil {
		return nil, err //nolint:wrapcheck // .
	}
	timestamp, err := b.validator.Timestamp(opts.Timestamp)
	if err != nil {
		return nil, err //nolint:wrapcheck // .
	}
	traits, err := b.validator.Mapping("traits", opts.Traits)
	if err != nil {
		return nil, err //nolint:wrapcheck // .
	}

	record := &EventRecord{
		Action:    ActionIdentify,
		SessionID: opts.SessionID,
		UserID:    opts.UserID,
		Timestamp: timestamp,
		Context:   mergeContext(opts.Context),
		Traits:    traits,
	}
	if err = ensureEncodable(record); err != nil {
		return nil, err
	}

	return record, nil
}

// mergeContext returns a new map; the caller's map is never modified nor retained.
// The library key is reserved and always overwrites whatever the caller put there.
func mergeContext(callerContext map[string]any) map[string]any {
	merged := make(map[string]any, len(callerContext)+1)
	for k, v := range callerContext {
		merged[k] = v
	}
	merged[LibraryContextKey] = map[string]any{
		"name":    LibraryName,
		"version": LibraryVersion,
	}

	return merged
}

// ensureEncodable rejects records holding values JSON can't represent (NaN, Inf, channels, funcs),
// since a single one of them would fail the whole batch it's posted with.
func ensureEncodable(record *EventRecord) error {
	payloadField, payload := "properties", record.Properties
	if record.Action == ActionIdentify {
		payloadField, payload = "traits", record.Traits
	}
	for _, part := range []struct {
		mapping map[string]any
		field   string
	}{{field: "context", mapping: record.Context}, {field: payloadField, mapping: payload}} {
		if _, err := json.Marshal(part.mapping); err != nil {
			return invalidArgument(part.field, "%v can't be encoded as JSON: %v", part.field, err)
		}
	}

	return nil
}
