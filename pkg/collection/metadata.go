package collection

import (
	"context"
	"strings"
	"time"
)

// PeriodSuggestion prefills a new period from an uploaded workbook. Every field may be empty.
type PeriodSuggestion struct {
	Normalized bool
	VenueID    *uint
	VenueName  string
	Start      *time.Time
	End        *time.Time
}

// SuggestPeriod reads the header of a normalized workbook and matches its venue name against known venues.
// Unreadable files and unknown venues yield a partial result, never an error; only store failures are returned.
func (service *Service) SuggestPeriod(ctx context.Context, data []byte) (PeriodSuggestion, error) {
	if service.codec == nil || len(data) == 0 {
		return PeriodSuggestion{}, nil
	}
	metadata, err := service.codec.ReadMetadata(data)
	if err != nil || !metadata.Normalized {
		return PeriodSuggestion{}, nil
	}
	suggestion := PeriodSuggestion{
		Normalized: true,
		VenueName:  strings.TrimSpace(metadata.VenueName),
		Start:      metadata.Start,
		End:        metadata.End,
	}
	if suggestion.VenueName == "" {
		return suggestion, nil
	}
	venues, err := service.store.ListVenues(ctx)
	if err != nil {
		return PeriodSuggestion{}, err
	}
	if venue, ok := MatchVenue(venues, suggestion.VenueName); ok {
		venueID := venue.ID
		suggestion.VenueID = &venueID
		suggestion.VenueName = venue.Name
	}
	return suggestion, nil
}

// MatchVenue finds a venue by exact case-insensitive name, then by containment in either direction.
func MatchVenue(venues []Venue, name string) (Venue, bool) {
	wanted := NormalizeLabel(name)
	if wanted == "" {
		return Venue{}, false
	}
	for _, venue := range venues {
		if strings.EqualFold(strings.TrimSpace(venue.Name), strings.TrimSpace(name)) {
			return venue, true
		}
	}
	for _, venue := range venues {
		known := NormalizeLabel(venue.Name)
		if known == "" {
			continue
		}
		if strings.Contains(known, wanted) || strings.Contains(wanted, known) {
			return venue, true
		}
	}
	return Venue{}, false
}
