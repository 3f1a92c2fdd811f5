package handlers

const (
	// Response formats
	formatJSON = "json"
	formatMIDI = "midi"

	midiContentType = "audio/midi"

	defaultListPageSize = 20
	maxListPageSize     = 100 // Maximum page size for composition listings
)
