package feed

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html/charset"
)

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the time source used for rate expiry.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) { p.now = now }
}

// WithIDGenerator sets the fallback id source for rates without an id attribute.
func WithIDGenerator(newID func() string) Option {
	return func(p *Parser) { p.newID = newID }
}

// roomState is the in-progress room between its open and close tag.
type roomState struct {
	room     NormalizedRoom
	sourceID string
	// index into room.Amenities awaiting its description, or -1
	pendingAmenity int
}

// Parser is a pull parser over a supplier XML feed. It accepts the Hotel/Room
// and the HotelDescriptiveContent/GuestRoom vocabularies, mixed freely.
//
// A Parser is single use: once Next has returned an error (including io.EOF)
// it keeps returning that error.
type Parser struct {
	dec   *xml.Decoder
	now   func() time.Time
	newID func() string

	// hotel id per open wrapper tag; inner wrappers without an id inherit
	hotels []string

	room *roomState
	// room tags opened inside a room, ignored until closed
	nested int

	rate           *RateRecord
	amountCurrency string

	text strings.Builder
	err  error
}

// NewParser returns a Parser reading from r.
func NewParser(r io.Reader, opts ...Option) *Parser {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	p := &Parser{
		dec:   dec,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next returns the next completed room in document order, or io.EOF once
// the feed is exhausted. Markup errors abort the parse.
func (p *Parser) Next() (Record, error) {
	if p.err != nil {
		return Record{}, p.err
	}

	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			p.err = io.EOF
			return Record{}, io.EOF
		}
		if err != nil {
			p.err = fmt.Errorf("malformed feed: %w", err)
			return Record{}, p.err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.text.Reset()
			p.open(t)
		case xml.CharData:
			p.text.Write(t)
		case xml.EndElement:
			if rec, ok := p.close(t.Name.Local, strings.TrimSpace(p.text.String())); ok {
				return rec, nil
			}
		}
	}
}

// Parse calls onRoom for every room in the feed. It stops at the first
// parse error or the first error returned by onRoom.
func (p *Parser) Parse(onRoom func(Record) error) error {
	for {
		rec, err := p.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := onRoom(rec); err != nil {
			return err
		}
	}
}

func (p *Parser) currentHotel() string {
	if len(p.hotels) == 0 {
		return ""
	}
	return p.hotels[len(p.hotels)-1]
}

func (p *Parser) open(el xml.StartElement) {
	switch el.Name.Local {
	case "Hotel", "HotelDescriptiveContent", "Property":
		id := attr(el, "HotelCode", "HotelID", "id", "Code")
		if id == "" {
			id = p.currentHotel()
		}
		p.hotels = append(p.hotels, id)
		return
	case "Room", "GuestRoom":
		if p.room != nil {
			p.nested++
			return
		}
		p.room = &roomState{
			room:           NewNormalizedRoom(attr(el, "roomTypeName", "name")),
			sourceID:       attr(el, "id", "code", "RoomTypeCode", "RoomID"),
			pendingAmenity: -1,
		}
		if n, ok := atoi(attr(el, "maxOccupancy", "MaxOccupancy")); ok {
			p.room.room.MaxOccupancy = &n
		}
		return
	}

	if p.room == nil {
		return
	}
	room := &p.room.room

	switch el.Name.Local {
	case "TypeRoom":
		if room.Name == "" {
			room.Name = attr(el, "name", "Name")
		}
		if p.room.sourceID == "" {
			p.room.sourceID = attr(el, "RoomTypeCode", "code")
		}
	case "Bed":
		count, ok := atoi(attr(el, "count"))
		if !ok || count < 1 {
			count = 1
		}
		room.Beds = append(room.Beds, Bed{Type: NormalizeBedType(attr(el, "type")), Count: count})
	case "Photo", "Image":
		if url := attr(el, "url", "src"); url != "" {
			room.Photos = append(room.Photos, Photo{URL: url})
		}
	case "Amenity":
		p.room.pendingAmenity = -1
		if code := attr(el, "code"); code != "" {
			room.Amenities = append(room.Amenities, Amenity{Type: MapAmenity(code)})
			p.room.pendingAmenity = len(room.Amenities) - 1
		}
	case "Rate", "RatePlan":
		id := attr(el, "id", "RatePlanID")
		if id == "" {
			id = p.newID()
		}
		rate := NewRateRecord(id, attr(el, "code", "RatePlanCode"), p.now())
		rate.Description = attr(el, "name", "RatePlanName")
		p.rate = &rate
	case "Amount", "Total":
		p.amountCurrency = attr(el, "currency", "CurrencyCode")
	}
}

// close handles an end tag with the trimmed text seen since the last open tag.
// It reports a finished record when a named room closes.
func (p *Parser) close(name, text string) (Record, bool) {
	switch name {
	case "Hotel", "HotelDescriptiveContent", "Property":
		if len(p.hotels) > 0 {
			p.hotels = p.hotels[:len(p.hotels)-1]
		}
		return Record{}, false
	case "Room", "GuestRoom":
		if p.room == nil {
			return Record{}, false
		}
		if p.nested > 0 {
			p.nested--
			return Record{}, false
		}
		state := p.room
		p.room = nil
		p.rate = nil
		if state.room.Name == "" {
			return Record{}, false
		}
		return Record{Room: state.room, SourceID: state.sourceID, HotelID: p.currentHotel()}, true
	}

	if p.room == nil {
		return Record{}, false
	}
	room := &p.room.room

	switch name {
	case "BedType":
		if text == "" {
			break
		}
		bed := NormalizeBedType(text)
		for i := range room.Beds {
			if room.Beds[i].Type == bed {
				room.Beds[i].Count++
				return Record{}, false
			}
		}
		room.Beds = append(room.Beds, Bed{Type: bed, Count: 1})
	case "Amenity":
		if idx := p.room.pendingAmenity; idx >= 0 {
			room.Amenities[idx].Description = text
			p.room.pendingAmenity = -1
		} else if text != "" {
			room.Amenities = append(room.Amenities, Amenity{Type: MapAmenity(text), Description: text})
		}
	case "RoomAmenity":
		if text != "" {
			room.Amenities = append(room.Amenities, Amenity{Type: MapAmenity(text), Description: text})
		}
	case "RoomCategory":
		if text != "" {
			room.Attributes[AttrClass] = text
		}
	case "RoomView":
		if text != "" {
			room.Attributes[AttrView] = text
		}
	case "Name", "RoomName":
		// Applies inside a rate too; rate names come from the rate tag's attributes.
		if text != "" {
			room.Name = text
		}
	case "MaxOccupancy":
		if n, ok := atoi(text); ok {
			room.MaxOccupancy = &n
		}
	case "Amount", "Total":
		if p.rate == nil {
			break
		}
		if text != "" {
			p.rate.TotalAmount = text
		}
		if p.amountCurrency != "" {
			p.rate.SetCurrency(p.amountCurrency)
		}
		p.amountCurrency = ""
	case "Meals", "Board":
		if p.rate != nil {
			p.rate.BoardType = DetectBoard(text)
		}
	case "Rate", "RatePlan":
		if p.rate != nil {
			room.Rates = append(room.Rates, *p.rate)
			p.rate = nil
		}
	}
	return Record{}, false
}

// attr returns the first non-empty attribute among names, in priority order.
func attr(el xml.StartElement, names ...string) string {
	for _, name := range names {
		for _, a := range el.Attr {
			if a.Name.Local == name {
				if v := strings.TrimSpace(a.Value); v != "" {
					return v
				}
			}
		}
	}
	return ""
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
